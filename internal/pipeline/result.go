package pipeline

import (
	"time"

	"github.com/xifan2333/gapcapture/pkgs/postprocess"
	"github.com/xifan2333/gapcapture/pkgs/transcript"
)

// RequestResult is the record of one processed recording. It is built once
// at the end of Process and never modified afterwards.
type RequestResult struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Transcript is the final text: the corrected transcript when grammar
	// correction ran, the raw one otherwise.
	Transcript          string `json:"transcript"`
	RawTranscript       string `json:"raw_transcript"`
	CorrectedTranscript string `json:"corrected_transcript"`

	Segments             []transcript.Result           `json:"segments"`
	SecondarySegments    []transcript.SecondaryResult  `json:"secondary_segments"`
	Translations         []postprocess.TranslationPair `json:"translations"`
	OriginalSentences    []string                      `json:"original_sentences,omitempty"`
	SentenceTranslations []postprocess.SentencePair    `json:"sentence_translations,omitempty"`

	Duration               float64 `json:"duration"`
	AudioDuration          float64 `json:"audio_duration"`
	SampleRate             int     `json:"sample_rate"`
	SpansCount             int     `json:"spans_count"`
	SegmentsCount          int     `json:"segments_count"`
	SecondarySegmentsCount int     `json:"secondary_segments_count"`
	FailedSegmentsCount    int     `json:"failed_segments_count"`

	Timings        map[string]float64 `json:"timings"`
	TotalTime      float64            `json:"total_time"`
	SegmentTimings []float64          `json:"segment_timings"`
}
