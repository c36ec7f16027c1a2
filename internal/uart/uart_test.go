package uart

import "testing"

func TestPushMakesByteAvailableToDataRegister(t *testing.T) {
	u := New(nil, nil)

	status, err := u.Load(offStatus, 32)
	if err != nil {
		t.Fatalf("Load status: %v", err)
	}

	if status&statusRXReady != 0 {
		t.Fatalf("status = %#x, want RX not ready before Push", status)
	}

	u.Push('A')

	status, _ = u.Load(offStatus, 32)
	if status&statusRXReady == 0 {
		t.Fatalf("status = %#x, want RX ready after Push", status)
	}

	v, err := u.Load(offData, 32)
	if err != nil {
		t.Fatalf("Load data: %v", err)
	}

	if v != 'A' {
		t.Fatalf("data = %#x, want 'A'", v)
	}

	status, _ = u.Load(offStatus, 32)
	if status&statusRXReady != 0 {
		t.Fatalf("status = %#x, want RX drained after read", status)
	}
}

func TestStoreDataInvokesOnTX(t *testing.T) {
	var got []byte

	u := New(func(b byte) { got = append(got, b) }, nil)

	if err := u.Store(offData, 32, uint64('h')); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := u.Store(offData, 32, uint64('i')); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if string(got) != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}

func TestPushInvokesIRQCallback(t *testing.T) {
	fired := 0
	u := New(nil, func() { fired++ })

	u.Push('x')

	if fired != 1 {
		t.Fatalf("irq fired %d times, want 1", fired)
	}
}
