package pdftext

import (
	"errors"
	"testing"
)

type fakePages struct {
	pages []string
	errAt int
}

func (f fakePages) NumPage() int {
	return len(f.pages)
}

func (f fakePages) PageText(n int) (string, error) {
	if n == f.errAt {
		return "", errors.New("bad font")
	}
	return f.pages[n-1], nil
}

func TestJoinPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"three pages", []string{"Intro", "Body", "Conclusion"}, "Intro\nBody\nConclusion"},
		{"trailing whitespace", []string{"Intro  ", "Body\n\n"}, "Intro  \nBody"},
		{"empty page kept in order", []string{"One", "", "Three"}, "One\n\nThree"},
		{"no pages", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := joinPages(fakePages{pages: tt.pages})
			if err != nil {
				t.Fatalf("joinPages: %v", err)
			}
			if got != tt.want {
				t.Errorf("joinPages = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinPagesError(t *testing.T) {
	_, err := joinPages(fakePages{pages: []string{"a", "b"}, errAt: 2})
	if err == nil {
		t.Fatal("expected error for unreadable page")
	}
}

func TestExtractNeverFails(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("hello, this is plain text"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<<"),
	} {
		t.Run(name, func(t *testing.T) {
			got := ExtractBytes(data)
			if !IsError(got) {
				t.Errorf("ExtractBytes(%s) = %q, want an error message", name, got)
			}
		})
	}

	if got := ExtractFile("/nonexistent/file.pdf"); !IsError(got) {
		t.Errorf("ExtractFile on missing file = %q", got)
	}
}
