package eventstream

import (
	"errors"
	"testing"
	"time"
)

func TestParseSinkType(t *testing.T) {
	for in, want := range map[string]SinkType{"s3": SinkS3, "S3": SinkS3, " elasticsearch ": SinkElasticsearch} {
		got, err := ParseSinkType(in)
		if err != nil || got != want {
			t.Fatalf("ParseSinkType(%q) = %q, %v", in, got, err)
		}
	}
	_, err := ParseSinkType("ftp")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("validation error must be distinct from not found")
	}
}

func TestNewAndHelpers(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New("my-ds", "3", true, "alice", now)
	if s.ID != "my-ds/3" || s.DatasetID() != "my-ds" || s.Version() != "3" {
		t.Fatalf("unexpected id parts: %+v", s)
	}
	if s.Status != StatusInactive || s.Subscribable.Status != StatusInactive || s.Subscribable.Enabled {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.HasLiveSubResources() {
		t.Fatalf("fresh stream has no live sub-resources")
	}
	s.Sinks = append(s.Sinks,
		Sink{ID: "aaaaa", Type: SinkS3, Status: StatusInactive, Deleted: true},
		Sink{ID: "bbbbb", Type: SinkS3, Status: StatusActive},
	)
	if live, ok := s.LiveSink(SinkS3); !ok || live.ID != "bbbbb" {
		t.Fatalf("LiveSink: %+v %v", live, ok)
	}
	if _, ok := s.LiveSink(SinkElasticsearch); ok {
		t.Fatalf("no elasticsearch sink expected")
	}
	if got := s.LiveSinks(); len(got) != 1 || got[0].ID != "bbbbb" {
		t.Fatalf("LiveSinks: %+v", got)
	}
	if !s.HasLiveSubResources() {
		t.Fatalf("active sink is a live sub-resource")
	}

	c := s.Clone()
	c.Sinks[1].Status = StatusDeleteInProgress
	if s.Sinks[1].Status != StatusActive {
		t.Fatalf("Clone must not share the sink slice")
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("ds-with-hyphens", "1"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	for _, k := range [][2]string{{"", "1"}, {"a/b", "1"}, {"ds", ""}, {"ds", "1-2"}} {
		if err := ValidateKey(k[0], k[1]); err == nil {
			t.Fatalf("expected error for %v", k)
		}
	}
}

func TestSplitID(t *testing.T) {
	d, v, err := SplitID("a-b/2")
	if err != nil || d != "a-b" || v != "2" {
		t.Fatalf("SplitID: %q %q %v", d, v, err)
	}
	if _, _, err := SplitID("nope"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestViews(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	es := New("ds1", "1", true, "alice", now)
	es.StackTemplate = "{}"
	es.Sinks = append(es.Sinks, Sink{ID: "abcde", Type: SinkS3, Status: StatusActive, StackTemplate: "{}"})

	v := es.View()
	if v.ID != "ds1/1" || !v.CreateRaw || v.Status != StatusInactive || v.UpdatedBy != "alice" || !v.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected stream view %+v", v)
	}
	if v.Confidentiality != "" {
		t.Fatalf("confidentiality is filled in by the caller, got %q", v.Confidentiality)
	}
	if sv := es.Sinks[0].View(); sv != (SinkView{ID: "abcde", Type: SinkS3, Status: StatusActive}) {
		t.Fatalf("unexpected sink view %+v", sv)
	}
}
