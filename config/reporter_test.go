package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func preparedReport(t *testing.T) (*Report, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.zip")
	conf := &ReporterConfig{Destination: path}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return r, path
}

func readReport(t *testing.T, path string) map[string]string {
	t.Helper()
	rd, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("unable to open report archive: %v", err)
	}
	defer rd.Close()

	out := make(map[string]string, len(rd.File))
	for _, f := range rd.File {
		fr, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(fr)
		if err != nil {
			t.Fatal(err)
		}
		_ = fr.Close()
		out[f.Name] = string(data)
	}
	return out
}

func TestReport_StoreAndClose(t *testing.T) {
	r, path := preparedReport(t)

	srcDir := t.TempDir()
	stored := filepath.Join(srcDir, "result.pages")
	if err := os.WriteFile(stored, []byte("bundle bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("result-book", stored)
	r.StoreData("config/config.yaml", []byte("version: 1\n"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readReport(t, path)

	if _, ok := entries["MANIFEST"]; !ok {
		t.Error("report has no MANIFEST")
	}
	if entries["result-book"] != "bundle bytes" {
		t.Errorf("stored file content = %q", entries["result-book"])
	}
	if entries["config/config.yaml"] != "version: 1\n" {
		t.Errorf("stored data content = %q", entries["config/config.yaml"])
	}

	// stored source file is left alone
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("stored file should not be removed: %v", err)
	}
}

func TestReport_StoreDirectory(t *testing.T) {
	r, path := preparedReport(t)

	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "page.xhtml"), []byte("<html/>"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("pages", srcDir)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readReport(t, path)
	if entries["pages/page.xhtml"] != "<html/>" {
		t.Errorf("directory entry missing: %v", keysOf(entries))
	}
}

func TestReport_AbsentEntriesIgnored(t *testing.T) {
	r, path := preparedReport(t)
	r.Store("gone", filepath.Join(t.TempDir(), "never-existed"))
	if err := r.Close(); err != nil {
		t.Fatalf("Close() with absent entry error = %v", err)
	}

	entries := readReport(t, path)
	if _, ok := entries["gone"]; ok {
		t.Error("absent file must be skipped, not archived")
	}
	if _, ok := entries["MANIFEST"]; !ok {
		t.Error("manifest must still list the attempt")
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
