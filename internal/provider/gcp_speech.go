package provider

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/iliyamo/speaknote/internal/model"
)

// recognizer is the slice of the Cloud Speech client the scorer needs.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

var _ recognizer = (*speech.Client)(nil)

// SpeechScorer grades recordings with Google Cloud Speech-to-Text.
// Pronunciation is the word similarity between the transcript and the
// expected text; fluency is the mean recognition confidence. Intonation is
// not derivable from a transcript and stays nil.
type SpeechScorer struct {
	client   recognizer
	closer   func() error
	Language string
}

func NewSpeechScorer(ctx context.Context, language string, opts ...option.ClientOption) (*SpeechScorer, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &SpeechScorer{client: c, closer: c.Close, Language: language}, nil
}

func (s *SpeechScorer) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *SpeechScorer) Score(ctx context.Context, audio []byte, contentType, expected string) (model.Scores, error) {
	if len(audio) == 0 {
		return model.Scores{}, fmt.Errorf("speech: empty recording")
	}
	lang := s.Language
	if lang == "" {
		lang = "en-US"
	}
	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode: lang,
			Encoding:     inferEncoding(contentType),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return model.Scores{}, fmt.Errorf("speech recognize: %w", err)
	}
	return scoreRecognition(resp, expected), nil
}

func scoreRecognition(resp *speechpb.RecognizeResponse, expected string) model.Scores {
	var (
		parts []string
		sum   float64
		n     int
	)
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, alts[0].GetTranscript())
		sum += float64(alts[0].GetConfidence())
		n++
	}
	transcript := strings.TrimSpace(strings.Join(parts, " "))

	pron := percent(WordSimilarity(transcript, expected))
	scores := model.Scores{Pronunciation: &pron}
	if n > 0 {
		flu := percent(sum / float64(n))
		scores.Fluency = &flu
	}
	var fb string
	switch {
	case transcript == "":
		fb = "No speech was recognized in the recording."
	default:
		fb = fmt.Sprintf("Heard: %q", transcript)
	}
	scores.Feedback = &fb
	return scores
}

func inferEncoding(contentType string) speechpb.RecognitionConfig_AudioEncoding {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(ct, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(ct, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
