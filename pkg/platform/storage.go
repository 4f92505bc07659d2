package platform

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/filelab/pkg/errors"
)

// ErrStorageBusy is returned when a picker operation is already in progress.
var ErrStorageBusy = stderrors.New("storage picker operation already in progress")

// MimeTypeText is the MIME type of plain text documents.
const MimeTypeText = "text/plain"

// StorageResult represents a result from document picker operations.
type StorageResult struct {
	requestID string
	Type      string // "openDocument" or "createDocument"
	URI       string // content URI of the chosen document
	Name      string
	MimeType  string
	Size      int64
	Cancelled bool
	Error     string
}

// OpenDocumentOptions configures the open document picker.
type OpenDocumentOptions struct {
	// MimeType filters selectable documents. Empty means text/plain.
	MimeType    string
	DialogTitle string
}

// CreateDocumentOptions configures the create document picker.
type CreateDocumentOptions struct {
	// Title is the suggested file name.
	Title string
	// MimeType of the new document. Empty means text/plain.
	MimeType    string
	DialogTitle string
}

// StorageService provides the document picker and content URI access.
type StorageService struct {
	channel *MethodChannel
	results *EventChannel
	mu      sync.Mutex // serializes picker operations
}

// Storage is the singleton storage service.
var Storage = &StorageService{
	channel: NewMethodChannel("drift/storage"),
	results: NewEventChannel("drift/storage/result"),
}

// OpenDocument opens the system picker for an existing openable document
// and blocks until the user picks one or cancels.
// Returns ErrStorageBusy if another picker operation is already in progress.
func (s *StorageService) OpenDocument(ctx context.Context, opts OpenDocumentOptions) (StorageResult, error) {
	return s.invokePicker(ctx, "openDocument", map[string]any{
		"mimeType":    orText(opts.MimeType),
		"dialogTitle": opts.DialogTitle,
	})
}

// CreateDocument opens the system picker to create a new document and
// blocks until the user confirms a location or cancels.
// Returns ErrStorageBusy if another picker operation is already in progress.
func (s *StorageService) CreateDocument(ctx context.Context, opts CreateDocumentOptions) (StorageResult, error) {
	return s.invokePicker(ctx, "createDocument", map[string]any{
		"title":       opts.Title,
		"mimeType":    orText(opts.MimeType),
		"dialogTitle": opts.DialogTitle,
	})
}

func orText(mime string) string {
	if mime == "" {
		return MimeTypeText
	}
	return mime
}

// invokePicker serializes picker operations, subscribes to the result event
// channel filtered by a generated request ID, invokes the native method,
// and blocks until a matching result arrives or the context is canceled.
func (s *StorageService) invokePicker(ctx context.Context, method string, args map[string]any) (StorageResult, error) {
	if !s.mu.TryLock() {
		return StorageResult{}, ErrStorageBusy
	}
	defer s.mu.Unlock()

	requestID := uuid.NewString()

	resultChan := make(chan StorageResult, 1)
	errChan := make(chan error, 1)
	sub := s.results.Listen(EventHandler{
		OnEvent: func(data any) {
			result, err := parseStorageResultWithID(data)
			if err != nil {
				errors.Report(&errors.Error{
					Op:      "storage.parse",
					Kind:    errors.KindParsing,
					Channel: "drift/storage/result",
					Err:     err,
				})
				return
			}
			if result.requestID == requestID {
				select {
				case resultChan <- result:
				default:
				}
			}
		},
		OnError: func(err error) {
			select {
			case errChan <- err:
			default:
			}
		},
		OnDone: func() {
			select {
			case errChan <- ErrClosed:
			default:
			}
		},
	})
	defer sub.Cancel()

	args["requestId"] = requestID

	if _, err := s.channel.Invoke(method, args); err != nil {
		return StorageResult{}, storageError(err)
	}

	select {
	case result := <-resultChan:
		switch {
		case result.Error == CodeNoHandler:
			return result, fmt.Errorf("%s: %w", method, errors.ErrNoHandler)
		case result.Error != "":
			return result, stderrors.New(result.Error)
		}
		return result, nil
	case err := <-errChan:
		return StorageResult{}, storageError(err)
	case <-ctx.Done():
		return StorageResult{}, ctx.Err()
	}
}

// ReadFile reads the contents of a document by content URI.
func (s *StorageService) ReadFile(uri string) ([]byte, error) {
	result, err := s.channel.Invoke("readFile", map[string]any{
		"uri": uri,
	})
	if err != nil {
		return nil, storageError(err)
	}
	return parseBytes(parseMap(result)["data"])
}

// WriteFile writes data to a document by content URI, truncating it.
func (s *StorageService) WriteFile(uri string, data []byte) error {
	_, err := s.channel.Invoke("writeFile", map[string]any{
		"uri":  uri,
		"data": data,
	})
	return storageError(err)
}

// parseBytes accepts raw bytes or the base64 string JSON produces for them.
func parseBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return base64.StdEncoding.DecodeString(v)
	default:
		return nil, &errors.ParseError{Channel: "drift/storage", DataType: "bytes", Got: value}
	}
}

func parseStorageResultWithID(data any) (StorageResult, error) {
	m := parseMap(data)
	requestID := parseString(m["requestId"])
	if m == nil || requestID == "" {
		return StorageResult{}, &errors.ParseError{
			Channel:  "drift/storage/result",
			DataType: "StorageResult",
			Got:      data,
		}
	}

	return StorageResult{
		requestID: requestID,
		Type:      parseString(m["type"]),
		URI:       parseString(m["uri"]),
		Name:      parseString(m["name"]),
		MimeType:  parseString(m["mimeType"]),
		Size:      parseInt64(m["size"]),
		Cancelled: parseBool(m["cancelled"]),
		Error:     parseString(m["error"]),
	}, nil
}
