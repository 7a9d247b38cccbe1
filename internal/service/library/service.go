package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/GintGld/fizteh-radio-bot/internal/lib/logger/sl"
	ptr "github.com/GintGld/fizteh-radio-bot/internal/lib/utils/pointers"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
	"github.com/GintGld/fizteh-radio-bot/internal/service"
)

// Library keeps per-user snapshots of radio media library.
type Library struct {
	log   *slog.Logger
	auth  Authorizer
	radio Radio

	mutex sync.Mutex
	libs  map[int64]snapshot
}

type snapshot struct {
	media []models.Media
	tags  models.TagList
}

type Authorizer interface {
	Do(ctx context.Context, id int64, f func(token string) error) error
}

type Radio interface {
	Library(ctx context.Context, token string) ([]models.Media, error)
	Tags(ctx context.Context, token string) (models.TagList, error)
	NewMedia(ctx context.Context, token string, media models.Media, sourcePath string) (int64, error)
}

// UploadResult describes uploaded media.
// Stale is set when library could not be refreshed after upload.
type UploadResult struct {
	ID    int64
	Stale bool
}

func New(
	log *slog.Logger,
	auth Authorizer,
	radio Radio,
) *Library {
	return &Library{
		log:   log,
		auth:  auth,
		radio: radio,
		libs:  make(map[int64]snapshot),
	}
}

// Refresh replaces user's library snapshot
// together with the list of radio tags.
func (l *Library) Refresh(ctx context.Context, id int64) error {
	const op = "Library.Refresh"

	log := l.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
	)

	var snap snapshot
	err := l.auth.Do(ctx, id, func(token string) error {
		var err error
		if snap.media, err = l.radio.Library(ctx, token); err != nil {
			return err
		}
		snap.tags, err = l.radio.Tags(ctx, token)
		return err
	})
	if err != nil {
		log.Error("failed to get library", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	l.mutex.Lock()
	l.libs[id] = snap
	l.mutex.Unlock()

	log.Debug("library refreshed", slog.Int("size", len(snap.media)), slog.Int("tags", len(snap.tags)))

	return nil
}

// All returns user's library snapshot.
func (l *Library) All(id int64) []models.Media {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return slices.Clone(l.libs[id].media)
}

// Tags returns tags known at the last refresh.
func (l *Library) Tags(id int64) models.TagList {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return slices.Clone(l.libs[id].tags)
}

// Media returns media from snapshot by its id.
func (l *Library) Media(id int64, mediaID int64) (models.Media, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, media := range l.libs[id].media {
		if media.ID != nil && *media.ID == mediaID {
			return media, nil
		}
	}

	return models.Media{}, service.ErrMediaNotFound
}

// Search returns media whose name or author contains query,
// ignoring case and diacritics. Words of the query starting
// with '#' select media by tag. Snapshot order is kept.
//
// Library is fetched first if user has no snapshot yet.
func (l *Library) Search(ctx context.Context, id int64, query string) ([]models.Media, error) {
	const op = "Library.Search"

	l.mutex.Lock()
	_, ok := l.libs[id]
	l.mutex.Unlock()

	if !ok {
		if err := l.Refresh(ctx, id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return filterContains(l.All(id), query), nil
}

// Suggestions returns at most n media close to query
// for the case when Search found nothing.
func (l *Library) Suggestions(id int64, query string, n int) []models.Media {
	ranked := filterRank(l.All(id), query)

	res := make([]models.Media, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		res = append(res, r.media)
	}

	return res
}

// Upload sends new media to radio.
//
// If media with the same name and author already exists,
// returns service.ErrMediaExists. Source file is removed in any case.
func (l *Library) Upload(ctx context.Context, id int64, upload models.MediaUpload) (UploadResult, error) {
	const op = "Library.Upload"

	log := l.log.With(
		slog.String("op", op),
		slog.Int64("userId", id),
		slog.String("name", upload.Name),
		slog.String("author", upload.Author),
	)

	defer func() {
		if err := os.Remove(upload.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove source", sl.Err(err))
		}
	}()

	if err := l.Refresh(ctx, id); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if l.exists(id, upload.Name, upload.Author) {
		log.Info("media already exists")
		return UploadResult{}, fmt.Errorf("%s: %w", op, service.ErrMediaExists)
	}

	media := models.Media{
		Name:   ptr.Ptr(upload.Name),
		Author: ptr.Ptr(upload.Author),
		Tags:   models.TagList{},
	}

	var mediaID int64
	err := l.auth.Do(ctx, id, func(token string) error {
		var err error
		mediaID, err = l.radio.NewMedia(ctx, token, media, upload.SourcePath)
		return err
	})
	if err != nil {
		log.Error("failed to upload media", sl.Err(err))
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("media uploaded", slog.Int64("mediaId", mediaID))

	res := UploadResult{ID: mediaID}

	if err := l.Refresh(ctx, id); err != nil {
		log.Warn("library is stale after upload", sl.Err(err))
		res.Stale = true
	}

	return res, nil
}

func (l *Library) exists(id int64, name, author string) bool {
	name, author = stringTransform(name), stringTransform(author)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	return slices.ContainsFunc(l.libs[id].media, func(m models.Media) bool {
		return stringTransform(deref(m.Name)) == name && stringTransform(deref(m.Author)) == author
	})
}
