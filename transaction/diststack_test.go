package transaction_test

import (
	"testing"

	"github.com/sarchlab/arches/transaction"
)

func TestDstStackRoundTrip(t *testing.T) {
	s := transaction.NewDstStack27()

	s.Push(3, 4)
	s.Push(11, 5)
	s.Push(1, 2)

	if s.Len() != 11 {
		t.Fatalf("expected cursor at 11 bits, got %d", s.Len())
	}

	if v := s.Pop(2); v != 1 {
		t.Fatalf("expected last-pushed field 1, got %d", v)
	}
	if v := s.Pop(5); v != 11 {
		t.Fatalf("expected middle field 11, got %d", v)
	}
	if v := s.Pop(4); v != 3 {
		t.Fatalf("expected first field 3, got %d", v)
	}

	if !s.Empty() {
		t.Fatal("expected stack to be fully unwound")
	}
}

func TestDstStackOverflowPanics(t *testing.T) {
	s := transaction.NewDstStack27()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dst-stack overflow")
		}
	}()
	s.Push(1, 20)
	s.Push(1, 20) // 40 > 27 capacity
}

func TestDstStackUnderflowPanics(t *testing.T) {
	s := transaction.NewDstStack27()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dst-stack underflow")
		}
	}()
	s.Pop(1)
}

func TestRequestMarshalRoundTrip(t *testing.T) {
	req := transaction.Request{
		Type:  transaction.ReqStore,
		Size:  8,
		Port:  42,
		Flags: 0x1,
		PAddr: 0xDEADBEEF,
	}
	req.Dst.Push(5, 6)
	copy(req.Data[:8], []byte("12345678"))

	buf := req.Marshal()
	got := transaction.UnmarshalRequest(buf)

	if got.Type != req.Type || got.Size != req.Size || got.Port != req.Port ||
		got.Flags != req.Flags || got.PAddr != req.PAddr {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, req)
	}
	if string(got.Data[:8]) != "12345678" {
		t.Fatalf("data payload mismatch: %q", got.Data[:8])
	}
	if got.Dst.Pop(6) != 5 {
		t.Fatal("dst-stack did not survive marshal round trip")
	}
}
