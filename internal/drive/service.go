// Package drive downloads snapshot exports from Google Drive.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ErrFileNotFound is returned when a path does not resolve to a file.
var ErrFileNotFound = errors.New("drive file not found")

const folderMimeType = "application/vnd.google-apps.folder"

type Service struct {
	srv *drive.Service
}

// NewService authenticates with a service-account JSON key (read-only scope).
func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	if strings.TrimSpace(credentialsJSON) == "" {
		return nil, errors.New("drive credentials must be provided")
	}

	config, err := google.JWTConfigFromJSON(
		[]byte(credentialsJSON),
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// ListFiles lists the non-trashed children of folderID ("root" when empty),
// newest first.
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "" {
		folderID = "root"
	}

	result, err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		OrderBy("modifiedTime desc").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	files := make([]*File, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, &File{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			Size:         f.Size,
		})
	}

	return files, nil
}

// DownloadFile streams the file content into w.
func (s *Service) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("unable to read file %s: %w", fileID, err)
	}
	return nil
}

// FindFolderByPath walks a slash-separated folder path from the drive root.
func (s *Service) FindFolderByPath(ctx context.Context, folderPath string) (string, error) {
	currentID := "root"

	for _, folder := range splitPath(folderPath) {
		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				escapeQuery(currentID), escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder %s: %w", folder, ErrFileNotFound)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

// ResolveFile finds the newest file named like the last element of filePath
// inside the folder named by the preceding elements.
func (s *Service) ResolveFile(ctx context.Context, filePath string) (*File, error) {
	dir, name := path.Split(strings.Trim(filePath, "/"))
	if name == "" {
		return nil, fmt.Errorf("%q: %w", filePath, ErrFileNotFound)
	}

	folderID, err := s.FindFolderByPath(ctx, dir)
	if err != nil {
		return nil, err
	}

	files, err := s.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f := pickFile(files, name); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%q: %w", filePath, ErrFileNotFound)
}

// pickFile returns the first non-folder file with the given name. files are
// expected newest first.
func pickFile(files []*File, name string) *File {
	for _, f := range files {
		if f.MimeType == folderMimeType {
			continue
		}
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func escapeQuery(v string) string {
	return strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `'`, `\'`)
}
