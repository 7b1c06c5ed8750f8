package archive

import (
	"archive/zip"
	"os"
	"testing"
)

func writeEvilZip(t *testing.T, path string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	writer := zip.NewWriter(out)
	entry, err := writer.Create("../escaped.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Write([]byte("boom")); err != nil {
		t.Fatal(err)
	}
	good, err := writer.Create("default-user/ok.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := good.Write([]byte("fine")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
}
