package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"showcase-web/domain"
)

// ErrSessionNotFound is returned when a control targets a carousel stream
// that is not (or no longer) connected.
var ErrSessionNotFound = errors.New("carousel session not found")

type carouselAction string

const (
	actionNext   carouselAction = "next"
	actionPrev   carouselAction = "prev"
	actionPause  carouselAction = "pause"
	actionResume carouselAction = "resume"
	actionGoTo   carouselAction = "goto"
)

func parseCarouselAction(s string) (carouselAction, bool) {
	switch a := carouselAction(s); a {
	case actionNext, actionPrev, actionPause, actionResume, actionGoTo:
		return a, true
	}
	return "", false
}

// carouselControl is one request delivered to a stream. Index is only read
// by goto.
type carouselControl struct {
	Action carouselAction
	Index  int
}

const carouselActionBuffer = 8

// CarouselHub drives testimonial autoplay. Every connected stream is a session
// owning its own carousel and timer; controls reach it through the hub.
type CarouselHub struct {
	slides   []domain.Testimonial
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]chan carouselControl
}

// NewCarouselHub creates a hub cycling slides every interval.
func NewCarouselHub(slides []domain.Testimonial, interval time.Duration) *CarouselHub {
	return &CarouselHub{
		slides:   slides,
		interval: interval,
		sessions: make(map[string]chan carouselControl),
	}
}

// Sessions reports the number of connected streams.
func (h *CarouselHub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *CarouselHub) open() (string, chan carouselControl) {
	id := uuid.NewString()
	ch := make(chan carouselControl, carouselActionBuffer)
	h.mu.Lock()
	h.sessions[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *CarouselHub) close(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// send delivers a control without blocking; when the session is backed up the
// control is dropped.
func (h *CarouselHub) send(id string, a carouselControl) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	select {
	case ch <- a:
	default:
		log.WithFields(log.Fields{"session": id, "action": a.Action}).Debug("carousel control dropped")
	}
	return nil
}

type carouselDot struct {
	Index     int
	Active    bool
	Direction domain.Direction
}

type carouselView struct {
	Index      int
	Direction  domain.Direction
	Slide      domain.Testimonial
	Prev       int
	Next       int
	Dots       []carouselDot
	IntervalMS int64
}

func (h *CarouselHub) page(c echo.Context) error {
	n := len(h.slides)
	i, err := strconv.Atoi(c.QueryParam("i"))
	if err != nil {
		i = 0
	}
	i = domain.WrapIndex(i, n)
	prev, next := domain.Neighbours(i, n)

	view := carouselView{
		Index:      i,
		Direction:  domain.ParseDirection(c.QueryParam("dir")),
		Prev:       prev,
		Next:       next,
		Dots:       make([]carouselDot, n),
		IntervalMS: h.interval.Milliseconds(),
	}
	if n > 0 {
		view.Slide = h.slides[i]
	}
	for d := range view.Dots {
		jump := domain.NewCarousel(n, i)
		jump.GoTo(d)
		view.Dots[d] = carouselDot{Index: d, Active: d == i, Direction: jump.Direction()}
	}
	return c.Render(http.StatusOK, "carousel", newPage("Testimonials", "/testimonial-carousel", view))
}

type sessionEvent struct {
	ID string `json:"id"`
}

type slideEvent struct {
	Index       int                `json:"index"`
	Direction   domain.Direction   `json:"direction"`
	Paused      bool               `json:"paused"`
	Testimonial domain.Testimonial `json:"testimonial"`
}

// stream is the autoplay timer. It emits a session event, the current slide,
// then a slide every interval until the client disconnects.
func (h *CarouselHub) stream(c echo.Context) error {
	if len(h.slides) == 0 {
		return c.String(http.StatusNotFound, "no testimonials")
	}
	start, err := strconv.Atoi(c.QueryParam("i"))
	if err != nil {
		start = 0
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}

	id, actions := h.open()
	log.WithFields(log.Fields{"session": id, "sessions": h.Sessions()}).Debug("carousel stream opened")
	defer func() {
		h.close(id)
		log.WithFields(log.Fields{"session": id, "sessions": h.Sessions()}).Debug("carousel stream closed")
	}()

	write := func(event string, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	carousel := domain.NewCarousel(len(h.slides), start)
	if err := write("session", sessionEvent{ID: id}); err != nil {
		return nil
	}
	if err := write("slide", h.slideEvent(carousel)); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !carousel.Tick() {
				continue
			}
		case a := <-actions:
			switch a.Action {
			case actionNext:
				carousel.Next()
				ticker.Reset(h.interval)
			case actionPrev:
				carousel.Prev()
				ticker.Reset(h.interval)
			case actionPause:
				carousel.Pause()
			case actionResume:
				carousel.Resume()
				ticker.Reset(h.interval)
			case actionGoTo:
				carousel.GoTo(a.Index)
				ticker.Reset(h.interval)
			}
		}
		if err := write("slide", h.slideEvent(carousel)); err != nil {
			return nil
		}
	}
}

func (h *CarouselHub) slideEvent(c *domain.Carousel) slideEvent {
	return slideEvent{
		Index:       c.Index(),
		Direction:   c.Direction(),
		Paused:      c.Paused(),
		Testimonial: h.slides[c.Index()],
	}
}

func (h *CarouselHub) control(c echo.Context) error {
	action, ok := parseCarouselAction(c.Param("action"))
	if !ok {
		return c.String(http.StatusBadRequest, "unknown action")
	}
	ctl := carouselControl{Action: action}
	if action == actionGoTo {
		i, err := strconv.Atoi(c.QueryParam("i"))
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid slide index")
		}
		ctl.Index = i
	}
	if err := h.send(c.Param("session"), ctl); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.String(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.NoContent(http.StatusAccepted)
}
