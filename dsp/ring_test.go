package dsp

import "testing"

func TestNewRingBuffer_InvalidCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
	}{
		{name: "zero capacity", capacity: 0},
		{name: "negative capacity", capacity: -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRingBuffer(tt.capacity); err == nil {
				t.Errorf("NewRingBuffer(%d) expected error, got nil", tt.capacity)
			}
		})
	}
}

func TestRingBuffer_WrapAroundKeepsLastCapacitySamples(t *testing.T) {
	const capacity = 16

	for _, k := range []int{0, 1, 5, 16, 33} {
		total := capacity + k
		rb, err := NewRingBuffer(capacity)
		if err != nil {
			t.Fatalf("NewRingBuffer() error: %v", err)
		}

		written := make([]float32, total)
		for i := range written {
			written[i] = float32(i)
		}
		rb.Write(written)

		if rb.Len() != capacity {
			t.Fatalf("Len() after overfill = %d, want %d", rb.Len(), capacity)
		}

		got := make([]float32, capacity)
		n := rb.Read(got)
		if n != capacity {
			t.Fatalf("Read() = %d samples, want %d", n, capacity)
		}

		for i := 0; i < capacity; i++ {
			want := written[total-capacity+i]
			if got[i] != want {
				t.Errorf("k=%d sample %d = %f, want %f", k, i, got[i], want)
			}
		}
	}
}

func TestRingBuffer_ReadShortWhenStarved(t *testing.T) {
	rb, err := NewRingBuffer(8)
	if err != nil {
		t.Fatalf("NewRingBuffer() error: %v", err)
	}
	rb.Write([]float32{1, 2, 3})

	dst := make([]float32, 8)
	if n := rb.Read(dst); n != 3 {
		t.Errorf("Read() = %d, want 3", n)
	}
	if rb.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", rb.Len())
	}
}

func TestRingBuffer_TapReadsRecentHistory(t *testing.T) {
	rb, err := NewRingBuffer(4)
	if err != nil {
		t.Fatalf("NewRingBuffer() error: %v", err)
	}

	for i := 1; i <= 6; i++ {
		rb.Push(float32(i))
	}

	// Most recent sample at delay 1, then backwards in time.
	wants := []float32{6, 5, 4, 3}
	for delay := 1; delay <= 4; delay++ {
		if got := rb.Tap(delay); got != wants[delay-1] {
			t.Errorf("Tap(%d) = %f, want %f", delay, got, wants[delay-1])
		}
	}

	// Delays beyond capacity clamp instead of wrapping out of bounds.
	if got := rb.Tap(99); got != wants[3] {
		t.Errorf("Tap(99) = %f, want clamped %f", got, wants[3])
	}
}
