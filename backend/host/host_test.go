package host

import (
	"testing"
	"unsafe"

	"github.com/djeday123/gomanaged/backend"
	"github.com/djeday123/gomanaged/core"
)

func TestRegistered(t *testing.T) {
	be, err := backend.Get(core.CPU)
	if err != nil {
		t.Fatalf("host backend not registered: %v", err)
	}
	if be.Name() != "host" || be.Space() != core.CPU {
		t.Errorf("unexpected backend: %s in %s", be.Name(), be.Space())
	}
}

func TestAllocSmall(t *testing.T) {
	b := &Backend{}
	s, err := b.Alloc(64)
	if err != nil {
		t.Fatal(err)
	}
	if s.ByteLen() != 64 || s.Ptr() == nil || s.Bytes() == nil {
		t.Fatalf("bad storage: len=%d", s.ByteLen())
	}
	s.Bytes()[63] = 0xab
	if *(*byte)(unsafe.Add(s.Ptr(), 63)) != 0xab {
		t.Error("Ptr and Bytes disagree")
	}
	b.Free(s)
	if s.Bytes() != nil {
		t.Error("storage not cleared after Free")
	}
}

func TestAllocMapped(t *testing.T) {
	b := &Backend{}
	s, err := b.Alloc(mapThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if s.ByteLen() != mapThreshold {
		t.Fatalf("len = %d, want %d", s.ByteLen(), mapThreshold)
	}
	// touch both ends
	s.Bytes()[0] = 1
	s.Bytes()[mapThreshold-1] = 2
	b.Free(s)
}

func TestWrapSharesMemory(t *testing.T) {
	b := &Backend{}
	buf := make([]byte, 16)
	s := b.Wrap(unsafe.Pointer(&buf[0]), 16)
	buf[3] = 0x7f
	if s.Bytes()[3] != 0x7f {
		t.Error("wrapped storage does not alias the source buffer")
	}
	b.Free(s) // must not release the caller's memory
	if buf[3] != 0x7f {
		t.Error("Free damaged wrapped memory")
	}
}

func TestCopyUploadDownload(t *testing.T) {
	b := &Backend{}
	src, _ := b.Alloc(8)
	dst, _ := b.Alloc(8)
	for i := range src.Bytes() {
		src.Bytes()[i] = byte(i)
	}
	if err := b.Copy(dst, src, 8); err != nil {
		t.Fatal(err)
	}
	if dst.Bytes()[7] != 7 {
		t.Error("Copy lost data")
	}

	host := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	if err := b.Upload(dst, host, 8); err != nil {
		t.Fatal(err)
	}
	if dst.Bytes()[0] != 9 {
		t.Error("Upload lost data")
	}
	out := make([]byte, 8)
	if err := b.Download(out, src, 8); err != nil {
		t.Fatal(err)
	}
	if out[5] != 5 {
		t.Error("Download lost data")
	}
}

func TestCopyTooLarge(t *testing.T) {
	b := &Backend{}
	src, _ := b.Alloc(4)
	dst, _ := b.Alloc(8)
	if err := b.Copy(dst, src, 8); err == nil {
		t.Error("expected error copying past source")
	}
}
