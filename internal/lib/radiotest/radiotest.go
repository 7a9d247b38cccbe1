// Package radiotest runs an in-process radio API for tests.
package radiotest

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/golang-jwt/jwt/v5"

	ptr "github.com/GintGld/fizteh-radio-bot/internal/lib/utils/pointers"
	"github.com/GintGld/fizteh-radio-bot/internal/models"
)

// UploadDuration is the duration assigned to every uploaded media.
const UploadDuration = 3 * time.Minute

type Server struct {
	URL string

	srv    *httptest.Server
	secret []byte

	mu        sync.Mutex
	editors   map[string]string
	tokenTTL  time.Duration
	library   []models.Media
	tags      models.TagList
	schedule  []models.Segment
	lastID    int64
	failAfter int
	stats     Stats
}

// Stats counts handled requests by kind.
type Stats struct {
	Logins          int
	LibraryRequests int
	Uploads         int
	ScheduleGets    int
	SegmentsCreated int
	SegmentsDeleted int
}

// New starts fake radio with single editor.
func New(login, pass string) *Server {
	s := &Server{
		secret:    []byte("radiotest-secret"),
		editors:   map[string]string{login: pass},
		tokenTTL:  time.Hour,
		failAfter: -1,
	}

	app := fiber.New()

	app.Post("/login", s.login)

	auth := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: s.secret},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication error",
			})
		},
	})

	app.Get("/library/media", auth, s.allMedia)
	app.Post("/library/media", auth, s.newMedia)
	app.Get("/library/tag", auth, s.allTags)
	app.Get("/schedule", auth, s.scheduleCut)
	app.Post("/schedule", auth, s.newSegment)
	app.Delete("/schedule/:id", auth, s.deleteSegment)

	s.srv = httptest.NewServer(adaptor.FiberApp(app))
	s.URL = s.srv.URL

	return s
}

func (s *Server) Close() {
	s.srv.Close()
}

// SetTokenTTL changes lifetime of tokens issued after the call.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	s.tokenTTL = ttl
	s.mu.Unlock()
}

// FailSegmentsAfter makes segment creation fail
// after n more successful creations. Negative n disables failures.
func (s *Server) FailSegmentsAfter(n int) {
	s.mu.Lock()
	s.failAfter = n
	s.mu.Unlock()
}

// AddMedia puts media to the library and returns its id.
func (s *Server) AddMedia(name, author string, duration time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	s.library = append(s.library, models.Media{
		ID:       ptr.Ptr(s.lastID),
		Name:     ptr.Ptr(name),
		Author:   ptr.Ptr(author),
		Duration: ptr.Ptr(duration),
		Tags:     models.TagList{},
	})

	return s.lastID
}

// tagTypes are the types radio registers on migration.
var tagTypes = map[string]int64{
	"format":   1,
	"genre":    2,
	"playlist": 3,
	"mood":     4,
	"language": 5,
	"podcast":  6,
	"album":    7,
}

// AddTag registers tag of given type.
func (s *Server) AddTag(typeName, name string) models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	tag := models.Tag{
		ID:   s.lastID,
		Name: name,
		Type: models.TagType{ID: tagTypes[typeName], Name: typeName},
		Meta: map[string]string{},
	}
	s.tags = append(s.tags, tag)

	return tag
}

// TagMedia attaches tag to media.
func (s *Server) TagMedia(mediaID int64, tag models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.library {
		if *s.library[i].ID == mediaID {
			s.library[i].Tags = append(s.library[i].Tags, tag)
		}
	}
}

// AddSegment puts segment to the schedule and returns its id.
func (s *Server) AddSegment(mediaID int64, start time.Time, duration time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	s.schedule = append(s.schedule, models.Segment{
		ID:        ptr.Ptr(s.lastID),
		MediaID:   ptr.Ptr(mediaID),
		Start:     ptr.Ptr(start),
		BeginCut:  ptr.Ptr(time.Duration(0)),
		StopCut:   ptr.Ptr(duration),
		Protected: true,
	})

	return s.lastID
}

func (s *Server) Library() []models.Media {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.library)
}

func (s *Server) Schedule() []models.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.schedule)
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

func (s *Server) login(c *fiber.Ctx) error {
	form := new(struct {
		Login string `json:"login"`
		Pass  string `json:"pass"`
	})

	if err := c.BodyParser(form); err != nil {
		return fiber.ErrBadRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Logins++

	if pass, ok := s.editors[form.Login]; !ok || pass != form.Pass {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = 1
	claims["login"] = form.Login
	claims["exp"] = time.Now().Add(s.tokenTTL).Unix()

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": tokenString,
	})
}

func (s *Server) allMedia(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.LibraryRequests++

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"library": s.library,
	})
}

func (s *Server) allTags(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := s.tags
	if tags == nil {
		tags = models.TagList{}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"tags": tags,
	})
}

func (s *Server) newMedia(c *fiber.Ctx) error {
	var media models.Media
	if err := json.Unmarshal([]byte(c.FormValue("media")), &media); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid media information",
		})
	}

	if media.Name == nil || media.Author == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and author required",
		})
	}

	file, err := c.FormFile("source")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid file",
		})
	}

	if t := file.Header.Get("Content-Type"); t != "audio/mpeg" && t != "application/octet-stream" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unsupported mime-type",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	defer f.Close()
	if _, err := io.Copy(io.Discard, f); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Uploads++
	s.lastID++
	media.ID = ptr.Ptr(s.lastID)
	media.Duration = ptr.Ptr(UploadDuration)
	s.library = append(s.library, media)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id": s.lastID,
	})
}

func (s *Server) scheduleCut(c *fiber.Ctx) error {
	start := time.Unix(0, 0)
	if unix := c.QueryInt("start"); unix != 0 {
		start = time.Unix(int64(unix), 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.ScheduleGets++

	segments := make([]models.Segment, 0, len(s.schedule))
	for _, segm := range s.schedule {
		if segm.End().After(start) {
			segments = append(segments, segm)
		}
	}

	slices.SortFunc(segments, func(a, b models.Segment) int {
		return a.Start.Compare(*b.Start)
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"segments": segments,
	})
}

func (s *Server) newSegment(c *fiber.Ctx) error {
	form := new(struct {
		Segment models.Segment `json:"segment"`
	})

	if err := c.BodyParser(form); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	segm := form.Segment
	if segm.MediaID == nil || segm.Start == nil || segm.BeginCut == nil || segm.StopCut == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "incomplete segment",
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAfter == 0 {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if s.failAfter > 0 {
		s.failAfter--
	}

	if !slices.ContainsFunc(s.library, func(m models.Media) bool { return *m.ID == *segm.MediaID }) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "media not found",
		})
	}

	s.stats.SegmentsCreated++
	s.lastID++
	segm.ID = ptr.Ptr(s.lastID)
	s.schedule = append(s.schedule, segm)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id": s.lastID,
	})
}

func (s *Server) deleteSegment(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad id",
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.schedule, func(segm models.Segment) bool { return *segm.ID == id })
	if idx == -1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "segment not found",
		})
	}

	s.stats.SegmentsDeleted++
	s.schedule = slices.Delete(s.schedule, idx, idx+1)

	return c.SendStatus(fiber.StatusOK)
}

// Auth is an authorizer bound to the fake radio credentials,
// for services tested apart from the auth service.
type Auth struct {
	srv *Server
}

func (s *Server) Auth() *Auth {
	return &Auth{srv: s}
}

// Do issues fresh token for every call.
func (a *Auth) Do(_ context.Context, _ int64, f func(token string) error) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":   1,
		"login": "radiotest",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	raw, err := token.SignedString(a.srv.secret)
	if err != nil {
		return err
	}

	return f(raw)
}
