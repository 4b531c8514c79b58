package journal

import (
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "B1")

	recs := []Record{
		{AtMs: 1, BoardID: "B1", Origin: OriginLocal, Op: OpCreate, ItemID: "T1", X: fptr(10), Y: fptr(20), UserID: "U1"},
		{AtMs: 2, BoardID: "B1", Origin: OriginLocal, Op: OpMove, ItemID: "T1", X: fptr(300), Y: fptr(400)},
		{AtMs: 3, BoardID: "B1", Origin: OriginRemote, Op: OpDelete, ItemID: "T1"},
	}
	for _, r := range recs {
		if err := w.Append(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "B1")
	if err != nil || len(files) != 1 {
		t.Fatalf("files: %v %v", files, err)
	}
	got, err := ReadFile(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("got %d records, want %d", len(got), len(recs))
	}
	if got[1].Op != OpMove || got[1].X == nil || *got[1].X != 300 {
		t.Fatalf("record 1 mangled: %+v", got[1])
	}
	if got[2].Origin != OriginRemote || got[2].X != nil {
		t.Fatalf("record 2 mangled: %+v", got[2])
	}
}

func TestNilWriterIsNoop(t *testing.T) {
	var w *Writer
	if err := w.Append(Record{Op: OpCreate}); err != nil {
		t.Fatalf("nil append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
