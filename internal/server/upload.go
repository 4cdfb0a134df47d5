package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes reads the PICDROP_MAX_UPLOAD_BYTES environment variable
// and returns the maximum allowed upload size in bytes. Returns 0 if not
// set (meaning no limit). Returns an error if the value cannot be parsed.
func maxUploadBytes() (int64, error) {
	raw := os.Getenv("PICDROP_MAX_UPLOAD_BYTES")
	if raw == "" {
		return 0, nil // no limit configured
	}
	return strconv.ParseInt(raw, 10, 64)
}

// uploadHandler handles POST /upload requests carrying an image in the
// multipart form field "image".
//
// The steps run sequentially and are not transactional across services:
// the payload is uploaded to the object store first, a record is inserted
// only once the object exists, and connected subscribers are notified
// last. The notification is deliberately best-effort and never blocks or
// fails the response. If the insert fails after a successful upload the
// stored object is orphaned; it is logged with its storage id so a
// reconciliation job can pick it up.
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit, err := maxUploadBytes()
		if err != nil {
			http.Error(w, "server misconfigured", http.StatusInternalServerError)
			return
		}
		if limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}

		var filePart io.Reader
		var contentType string

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, "No file uploaded", http.StatusBadRequest)
				return
			}
			defer func() { _ = part.Close() }()

			if part.FormName() != "image" {
				continue
			}

			filePart = part
			contentType = part.Header.Get("Content-Type")
			break
		}

		if filePart == nil {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}

		// Buffer the payload so an empty file part can be rejected before
		// anything is created remotely.
		data, err := io.ReadAll(filePart)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		if len(data) == 0 {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}

		rid := RequestIDFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		ref, err := cfg.Blobs.Upload(ctx, bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			log.Error().Str("rid", rid).Err(err).Msg("object store upload failed")
			http.Error(w, "Error during file upload", http.StatusInternalServerError)
			return
		}

		rec := &ImageRecord{
			ID:        uuid.New(),
			ImageURL:  ref.URL,
			StorageID: ref.StorageID,
			CreatedAt: time.Now().UTC(),
		}

		dbCtx, dbCancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer dbCancel()

		if err := cfg.Images.Insert(dbCtx, rec); err != nil {
			// The object is already stored; flag it for reconciliation.
			log.Error().Str("rid", rid).Str("storage_id", ref.StorageID).Err(err).
				Msg("image record insert failed, stored object orphaned")
			http.Error(w, "Error during file upload", http.StatusInternalServerError)
			return
		}

		if cfg.Notifier != nil {
			cfg.Notifier.NewImage(ref.URL, ref.StorageID)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "Post and save successfully!")
	})
}
