package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"movielist/pkg/domain"
	"movielist/pkg/poster"
)

const (
	mirrorFetchTimeout = 30 * time.Second
	mirrorConcurrency  = 4
	presignExpiry      = 15 * time.Minute
)

func posterKey(movieID string) string {
	return "posters/" + movieID
}

// mirrorPosterAsync copies the poster into object storage in the background.
// Best effort: the catalog entry is already durable, a failed mirror only
// means the poster keeps being served from the provider CDN.
func (a *App) mirrorPosterAsync(movie domain.Movie) {
	if a.mirror == nil || movie.PosterPath == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorFetchTimeout)
		defer cancel()
		if err := a.mirrorPoster(ctx, movie); err != nil {
			slog.Warn("poster mirror failed", "movie_id", movie.ID, "err", err)
		}
	}()
}

func (a *App) mirrorPoster(ctx context.Context, movie domain.Movie) error {
	url := poster.URL(movie.PosterPath, a.posterQuality)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := a.posterClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch poster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch poster: status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return a.mirror.Put(ctx, posterKey(movie.ID), resp.Body, resp.ContentLength, contentType)
}

// PosterURL returns a pre-signed URL for the mirrored poster.
func (a *App) PosterURL(ctx context.Context, movieID string) (string, error) {
	if a.mirror == nil {
		return "", ErrMirrorDisabled
	}
	ok, err := a.mirror.Has(ctx, posterKey(movieID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrPosterNotMirrored
	}
	return a.mirror.PresignGet(ctx, posterKey(movieID), presignExpiry)
}

// MirrorMissingPosters copies every poster that is not yet in object storage,
// a few at a time. Returns the number of posters mirrored.
func (a *App) MirrorMissingPosters(ctx context.Context) (int, error) {
	if a.mirror == nil {
		return 0, ErrMirrorDisabled
	}
	movies, err := a.store.ListMovies()
	if err != nil {
		return 0, fmt.Errorf("list movies: %w", err)
	}

	var mirrored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mirrorConcurrency)
	for _, movie := range movies {
		if movie.PosterPath == "" {
			continue
		}
		movie := movie
		g.Go(func() error {
			ok, err := a.mirror.Has(gctx, posterKey(movie.ID))
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			if err := a.mirrorPoster(gctx, movie); err != nil {
				return fmt.Errorf("mirror %s: %w", movie.ID, err)
			}
			mirrored.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(mirrored.Load()), err
	}
	return int(mirrored.Load()), nil
}
