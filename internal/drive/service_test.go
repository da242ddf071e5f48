package drive

import (
	"context"
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	got := splitPath("/exports// reorder /daily/")
	want := []string{"exports", "reorder", "daily"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := splitPath(""); len(got) != 0 {
		t.Errorf("Expected no parts, got %v", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`O'Brien\x`); got != `O\'Brien\\x` {
		t.Errorf("Expected escaped quote and backslash, got %s", got)
	}
}

func TestPickFile(t *testing.T) {
	files := []*File{
		{ID: "1", Name: "snapshot.csv", MimeType: folderMimeType},
		{ID: "2", Name: "Snapshot.CSV", MimeType: "text/csv"},
		{ID: "3", Name: "snapshot.csv", MimeType: "text/csv"},
	}
	if f := pickFile(files, "snapshot.csv"); f == nil || f.ID != "2" {
		t.Errorf("Expected newest non-folder match 2, got %+v", f)
	}
	if f := pickFile(files, "other.csv"); f != nil {
		t.Errorf("Expected no match, got %+v", f)
	}
}

func TestNewService_RequiresCredentials(t *testing.T) {
	if _, err := NewService(context.Background(), " "); err == nil {
		t.Error("Expected error for empty credentials")
	}
	if _, err := NewService(context.Background(), "{not json"); err == nil {
		t.Error("Expected error for malformed credentials")
	}
}
