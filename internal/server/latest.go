package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// latestImageResp mirrors the payload browser clients poll for.
type latestImageResp struct {
	ImageURL  string    `json:"imageUrl"`
	PublicID  string    `json:"publicId"`
	CreatedAt time.Time `json:"createdAt"`
}

// latestImageHandler handles GET /latest-image, returning the reference
// fields of the most recently persisted image record.
func (cfg Config) latestImageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		rec, err := cfg.Images.Latest(ctx)
		if err != nil {
			if errors.Is(err, ErrNoImages) {
				http.Error(w, "No images found", http.StatusNotFound)
				return
			}
			rid := RequestIDFromContext(r.Context())
			log.Error().Str("rid", rid).Err(err).Msg("latest image query failed")
			http.Error(w, "Error fetching latest image", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(latestImageResp{
			ImageURL:  rec.ImageURL,
			PublicID:  rec.StorageID,
			CreatedAt: rec.CreatedAt,
		})
	})
}
