package platform

import (
	"context"
	stderrors "errors"

	"github.com/go-drift/filelab/pkg/errors"
)

// MimeTypePNG is the MIME type of PNG images.
const MimeTypePNG = "image/png"

// ErrMediaInsert is returned when the media index refuses a new entry.
var ErrMediaInsert = stderrors.New("media index did not return a URI for the new entry")

// MediaEntry is one row of the shared image index.
type MediaEntry struct {
	ID          int64
	URI         string
	DisplayName string
	MimeType    string
}

// MediaValues describes a new image index entry.
type MediaValues struct {
	DisplayName string
	MimeType    string
	// Pending hides the entry from other apps until SetPending(false).
	Pending bool
}

// MediaStoreService provides the shared image index.
//
// The ctx parameters are checked before the call is made; the native side
// answers synchronously.
type MediaStoreService struct {
	channel *MethodChannel
}

// MediaStore is the singleton media index service.
var MediaStore = &MediaStoreService{
	channel: NewMethodChannel("drift/mediastore"),
}

// Query returns the visible images with the given MIME type ordered by
// display name.
func (m *MediaStoreService) Query(ctx context.Context, mimeType string) ([]MediaEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := m.channel.Invoke("query", map[string]any{
		"mimeType": mimeType,
		"orderBy":  "_display_name ASC",
	})
	if err != nil {
		return nil, storageError(err)
	}

	rows, ok := parseMap(result)["rows"].([]any)
	if !ok {
		return nil, nil
	}
	entries := make([]MediaEntry, 0, len(rows))
	for _, r := range rows {
		row := parseMap(r)
		if row == nil {
			errors.Report(&errors.Error{
				Op:      "mediastore.query",
				Kind:    errors.KindParsing,
				Channel: "drift/mediastore",
				Err:     &errors.ParseError{Channel: "drift/mediastore", DataType: "MediaEntry", Got: r},
			})
			continue
		}
		entries = append(entries, MediaEntry{
			ID:          parseInt64(row["id"]),
			URI:         parseString(row["uri"]),
			DisplayName: parseString(row["displayName"]),
			MimeType:    parseString(row["mimeType"]),
		})
	}
	return entries, nil
}

// Insert adds an entry to the image index and returns its content URI.
func (m *MediaStoreService) Insert(ctx context.Context, values MediaValues) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := m.channel.Invoke("insert", map[string]any{
		"displayName": values.DisplayName,
		"mimeType":    values.MimeType,
		"isPending":   values.Pending,
	})
	if err != nil {
		return "", storageError(err)
	}
	uri := parseString(parseMap(result)["uri"])
	if uri == "" {
		return "", ErrMediaInsert
	}
	return uri, nil
}

// Write stores the content of the entry at uri, replacing any previous
// content.
func (m *MediaStoreService) Write(ctx context.Context, uri string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.channel.Invoke("write", map[string]any{
		"uri":  uri,
		"data": data,
	})
	return storageError(err)
}

// SetPending sets or clears the pending flag of the entry at uri.
func (m *MediaStoreService) SetPending(ctx context.Context, uri string, pending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.channel.Invoke("update", map[string]any{
		"uri":       uri,
		"isPending": pending,
	})
	return storageError(err)
}
