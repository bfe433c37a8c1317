package meter

import "testing"

func TestClipDetectorEdges(t *testing.T) {
	var c clipDetector

	// A sequence that crosses the threshold once up and once down yields
	// exactly one enter and one exit, however long it lingers on each side.
	sequence := []float64{-10, -5, 1, 2, 2.5, 1.5, -3, -8, -8}
	enters, exits := 0, 0
	for _, v := range sequence {
		entered, exited := c.update(v, 0)
		if entered {
			enters++
		}
		if exited {
			exits++
		}
	}
	if enters != 1 || exits != 1 {
		t.Errorf("got %d enters and %d exits, want 1 and 1", enters, exits)
	}
	if c.active() {
		t.Error("detector still clipping after the signal fell")
	}
}

func TestClipDetectorExactThresholdIsNotClipping(t *testing.T) {
	var c clipDetector
	if entered, _ := c.update(0, 0); entered {
		t.Error("value equal to threshold must not clip")
	}
}

func TestClipDetectorThresholdChange(t *testing.T) {
	var c clipDetector

	// Steady value, threshold moves underneath it: the next evaluation
	// fires the rising edge.
	if entered, _ := c.update(-5, 0); entered {
		t.Fatal("unexpected enter below threshold")
	}
	entered, _ := c.update(-5, -10)
	if !entered {
		t.Error("lowered threshold did not fire an enter edge")
	}

	// And back out again when the threshold rises above the value.
	_, exited := c.update(-5, 0)
	if !exited {
		t.Error("raised threshold did not fire an exit edge")
	}
}
