package assets

import (
	"bytes"
	"testing"
)

func TestEmbeddedFiles(t *testing.T) {
	if !bytes.Contains(SampleDataset(), []byte(`record = "ORDREC"`)) {
		t.Error("sample dataset missing record format")
	}
	if !bytes.Contains(Stylesheet(), []byte(".dds-grid-row")) {
		t.Error("stylesheet missing grid row rule")
	}
}
