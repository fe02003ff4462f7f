package eventsubscribers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mono83/slf"

	"ely.by/skinbox/internal/textures"
)

type StatsReporter struct {
	slf.StatsReporter
	Prefix string

	// Concurrent operations with the same key are matched in the order they were started
	timersMap   map[string][]time.Time
	timersMutex sync.Mutex
}

func (s *StatsReporter) ConfigureWithDispatcher(d Subscriber) {
	s.timersMap = make(map[string][]time.Time)

	// Per request events
	d.Subscribe("skinbox:before_request", s.handleBeforeRequest)
	d.Subscribe("skinbox:after_request", s.handleAfterRequest)

	// Uploads
	d.Subscribe("uploads:before_store", func(id string, kind textures.Kind) {
		s.startTimeRecording("upload_store_time_" + string(kind) + "_" + id)
	})
	d.Subscribe("uploads:after_store", func(id string, kind textures.Kind, size int64, err error) {
		if err != nil {
			s.incCounter("uploads.failed")
			s.discardTimeRecording("upload_store_time_" + string(kind) + "_" + id)
			return
		}

		s.incCounter("uploads." + kind.Plural() + ".stored")
		s.updateGauge("uploads.last_size", size)
		s.finalizeTimeRecording("upload_store_time_"+string(kind)+"_"+id, "uploads.store_time")
	})

	// Gallery
	d.Subscribe("gallery:after_list", func(count int, err error) {
		if err != nil {
			s.incCounter("gallery.read_failed")
			return
		}

		s.updateGauge("gallery.size", int64(count))
	})
	d.Subscribe("gallery:invalid_name", s.incCounterHandler("gallery.invalid_name"))

	// Pinger
	d.Subscribe("pinger:before_round", func(urlsCount int) {
		s.startTimeRecording("pinger_round_time")
	})
	d.Subscribe("pinger:after_ping", func(url string, statusCode int, err error) {
		if err != nil {
			s.incCounter("pinger.failed")
		} else {
			s.incCounter("pinger.success")
		}
	})
	d.Subscribe("pinger:after_round", func(urlsCount int, failedCount int) {
		s.finalizeTimeRecording("pinger_round_time", "pinger.round_time")
	})
}

func (s *StatsReporter) handleBeforeRequest(req *http.Request) {
	var key string
	m := req.Method
	p := req.URL.Path
	if m == http.MethodPost && p == "/upload" {
		key = "upload.request"
	} else if p == "/gallery" || p == "/gallery.json" {
		key = "gallery.request"
	} else if strings.HasPrefix(p, "/uploads/skins/") {
		key = "skins.request"
	} else if strings.HasPrefix(p, "/uploads/capes/") {
		key = "capes.request"
	} else if p == "/CustomSkinLoader.json" {
		key = "csl_config.request"
	} else {
		return
	}

	s.incCounter(key)
}

func (s *StatsReporter) handleAfterRequest(req *http.Request, code int) {
	var key string
	m := req.Method
	p := req.URL.Path
	if m == http.MethodPost && p == "/upload" && code == http.StatusOK {
		key = "upload.success"
	} else if m == http.MethodPost && p == "/upload" && code == http.StatusBadRequest {
		key = "upload.validation_failed"
	} else if m == http.MethodPost && p == "/upload" && code == http.StatusRequestEntityTooLarge {
		key = "upload.too_large"
	} else if strings.HasPrefix(p, "/uploads/") && code == http.StatusNotFound {
		key = "textures.not_found"
	} else {
		return
	}

	s.incCounter(key)
}

func (s *StatsReporter) incCounterHandler(name string) func(...interface{}) {
	return func(...interface{}) {
		s.incCounter(name)
	}
}

func (s *StatsReporter) startTimeRecording(timeKey string) {
	s.timersMutex.Lock()
	defer s.timersMutex.Unlock()
	s.timersMap[timeKey] = append(s.timersMap[timeKey], time.Now())
}

func (s *StatsReporter) finalizeTimeRecording(timeKey string, statName string) {
	startedAt, ok := s.popTimeRecording(timeKey)
	if !ok {
		return
	}

	s.recordTimer(statName, time.Since(startedAt))
}

func (s *StatsReporter) discardTimeRecording(timeKey string) {
	s.popTimeRecording(timeKey)
}

func (s *StatsReporter) popTimeRecording(timeKey string) (time.Time, bool) {
	s.timersMutex.Lock()
	defer s.timersMutex.Unlock()
	started := s.timersMap[timeKey]
	if len(started) == 0 {
		return time.Time{}, false
	}

	if len(started) == 1 {
		delete(s.timersMap, timeKey)
	} else {
		s.timersMap[timeKey] = started[1:]
	}

	return started[0], true
}

func (s *StatsReporter) incCounter(name string) {
	s.IncCounter(s.key(name), 1)
}

func (s *StatsReporter) updateGauge(name string, value int64) {
	s.UpdateGauge(s.key(name), value)
}

func (s *StatsReporter) recordTimer(name string, duration time.Duration) {
	s.RecordTimer(s.key(name), duration)
}

func (s *StatsReporter) key(name string) string {
	if s.Prefix == "" {
		return name
	}

	return strings.Join([]string{s.Prefix, name}, ".")
}
