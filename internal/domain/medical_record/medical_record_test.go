package medical_record

import (
	"errors"
	"testing"
)

func TestAttachmentContentType(t *testing.T) {
	cases := map[string]string{
		"labs.pdf":        "application/pdf",
		"X-RAY.JPG":       "image/jpeg",
		"scan.jpeg":       "image/jpeg",
		"wound.final.png": "image/png",
	}
	for name, want := range cases {
		got, err := AttachmentContentType(name)
		if err != nil || got != want {
			t.Errorf("AttachmentContentType(%q) = %q, %v", name, got, err)
		}
	}

	for _, name := range []string{"notes.docx", "archive.tar.gz", "noext", "pdf"} {
		if _, err := AttachmentContentType(name); !errors.Is(err, ErrUnsupportedAttachment) {
			t.Errorf("AttachmentContentType(%q) err = %v", name, err)
		}
	}
}

func TestTotalServicesCents(t *testing.T) {
	r := &MedicalRecord{Services: []ServiceLine{
		{Quantity: 2, UnitPriceCents: 35000},
		{Quantity: 1, UnitPriceCents: 12050},
	}}
	if got := r.TotalServicesCents(); got != 82050 {
		t.Fatalf("total = %d", got)
	}
	if got := (&MedicalRecord{}).TotalServicesCents(); got != 0 {
		t.Fatalf("empty total = %d", got)
	}
}
