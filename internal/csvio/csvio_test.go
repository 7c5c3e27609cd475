package csvio

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, path string) []Record {
	t.Helper()
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, rec)
	}
	return out
}

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Title", "title"},
		{"  Release_Date  ", "release_date"},
		{"\uFEFFusername", "username"},
		{"=\"email\"", "email"},
		{`"genre"`, "genre"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanHeader(tt.input); got != tt.want {
			t.Errorf("CleanHeader(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReaderStreamsRecords(t *testing.T) {
	path := writeFile(t, "Type,Title,Year\nmovie,Alien,1979\nmovie,Heat,1995\n")

	recs := readAll(t, path)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Line != 1 || recs[1].Line != 2 {
		t.Errorf("lines = %d, %d; want 1, 2", recs[0].Line, recs[1].Line)
	}
	if got := recs[0].Get("title"); got != "Alien" {
		t.Errorf("title = %q, want Alien", got)
	}
	if got := recs[1].Get("year"); got != "1995" {
		t.Errorf("year = %q, want 1995", got)
	}
}

func TestRecordGetSynonyms(t *testing.T) {
	path := writeFile(t, "type,movie_name,name\nmovie,Heat,ignored\n")

	recs := readAll(t, path)
	if got := recs[0].Get("title", "movie_name", "name"); got != "Heat" {
		t.Errorf("Get = %q, want first non-empty synonym Heat", got)
	}
	if got := recs[0].Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestReaderRaggedRows(t *testing.T) {
	path := writeFile(t, "type,title,language\nmovie,Alien\nmovie,Heat,English,extra\n")

	recs := readAll(t, path)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if got := recs[0].Get("language"); got != "" {
		t.Errorf("short row language = %q, want empty", got)
	}
	if got := recs[1].Get("language"); got != "English" {
		t.Errorf("long row language = %q, want English", got)
	}
}

func TestRecordEmpty(t *testing.T) {
	path := writeFile(t, "type,title\n , \nmovie,Alien\n")

	recs := readAll(t, path)
	if !recs[0].Empty() {
		t.Error("blank row should be Empty")
	}
	if recs[1].Empty() {
		t.Error("populated row should not be Empty")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenEmptyFile(t *testing.T) {
	if _, err := Open(writeFile(t, "")); err == nil {
		t.Error("expected error for empty source (no header)")
	}
}

func TestValuesAreTrimmed(t *testing.T) {
	path := writeFile(t, "type,title\nmovie,  Alien  \n")

	recs := readAll(t, path)
	if got := recs[0].Get("title"); got != "Alien" {
		t.Errorf("title = %q, want trimmed Alien", got)
	}
}
