package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/model"
	"github.com/iliyamo/speaknote/internal/provider"
	"github.com/iliyamo/speaknote/internal/repository"
	"github.com/iliyamo/speaknote/internal/storage"
)

// ErrRecordingTooLarge is returned when a recording exceeds MaxBytes.
var ErrRecordingTooLarge = errors.New("recording too large")

// PracticeService stores a recording, scores it and records the
// practice_speaking activity.
type PracticeService struct {
	Notes        *repository.NoteRepo
	Practices    *repository.PracticeRepo
	Activities   *ActivityService
	Store        storage.Store
	Scorer       provider.Scorer // optional
	ScoreTimeout time.Duration
	MaxBytes     int64
	Log          *logger.Logger
}

// Submission is one uploaded practice attempt.
type Submission struct {
	UserID      int64
	NoteID      int64
	FileName    string
	ContentType string
	Audio       io.Reader    // nil when no file was uploaded
	Scores      model.Scores // client-supplied, optional
}

// Submit checks that the note belongs to the user before touching the file
// store. Client scores win over scorer output field by field. The activity
// is recorded after the practice row is committed and its failure does not
// fail the submission.
func (s *PracticeService) Submit(ctx context.Context, sub Submission) (model.Practice, error) {
	note, err := s.Notes.GetOwned(ctx, sub.NoteID, sub.UserID)
	if err != nil {
		return model.Practice{}, err
	}

	var (
		data []byte
		key  string
		url  *string
	)
	if sub.Audio != nil {
		reader := sub.Audio
		if s.MaxBytes > 0 {
			reader = io.LimitReader(sub.Audio, s.MaxBytes+1)
		}
		data, err = io.ReadAll(reader)
		if err != nil {
			return model.Practice{}, fmt.Errorf("read recording: %w", err)
		}
		if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
			return model.Practice{}, ErrRecordingTooLarge
		}
		key = storage.NewKey(storage.PrefixPractice, sub.FileName)
		saved, err := s.Store.Save(ctx, key, bytes.NewReader(data), sub.ContentType)
		if err != nil {
			return model.Practice{}, fmt.Errorf("store recording: %w", err)
		}
		url = &saved
	}

	scores := s.score(ctx, data, sub.ContentType, note, sub.Scores)
	p := model.Practice{
		UserID:        sub.UserID,
		NoteID:        note.ID,
		AudioURL:      url,
		Pronunciation: scores.Pronunciation,
		Intonation:    scores.Intonation,
		Fluency:       scores.Fluency,
		Feedback:      scores.Feedback,
	}
	if _, err := s.Practices.Create(ctx, &p); err != nil {
		if key != "" {
			if derr := s.Store.Delete(context.Background(), key); derr != nil {
				s.log().Warn("remove orphaned recording failed", "key", key, "err", derr)
			}
		}
		if errors.Is(err, repository.ErrInvalidReference) {
			// the note was deleted between the ownership check and the insert
			return model.Practice{}, repository.ErrNotFound
		}
		return model.Practice{}, err
	}

	noteID := note.ID
	if _, err := s.Activities.Record(ctx, sub.UserID, model.ActivityPracticeSpeaking, "", &noteID); err != nil {
		s.log().Warn("record practice activity failed", "user_id", sub.UserID, "note_id", noteID, "err", err)
	}
	return p, nil
}

func (s *PracticeService) score(ctx context.Context, audio []byte, contentType string, note model.Note, client model.Scores) model.Scores {
	if s.Scorer == nil || len(audio) == 0 || complete(client) {
		return client
	}
	expected := note.Text
	if note.TranslatedText != nil && *note.TranslatedText != "" {
		expected = *note.TranslatedText
	}
	if s.ScoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ScoreTimeout)
		defer cancel()
	}
	got, err := s.Scorer.Score(ctx, audio, contentType, expected)
	if err != nil {
		s.log().Warn("score recording failed", "note_id", note.ID, "err", err)
		return client
	}
	return mergeScores(client, got)
}

// complete reports whether the client supplied every numeric score.
func complete(sc model.Scores) bool {
	return sc.Pronunciation != nil && sc.Intonation != nil && sc.Fluency != nil
}

// mergeScores keeps every non-nil field of primary and fills the rest from
// fallback.
func mergeScores(primary, fallback model.Scores) model.Scores {
	out := primary
	if out.Pronunciation == nil {
		out.Pronunciation = fallback.Pronunciation
	}
	if out.Intonation == nil {
		out.Intonation = fallback.Intonation
	}
	if out.Fluency == nil {
		out.Fluency = fallback.Fluency
	}
	if out.Feedback == nil {
		out.Feedback = fallback.Feedback
	}
	return out
}

func (s *PracticeService) log() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
