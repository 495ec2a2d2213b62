package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/xifan2333/gapcapture/pkgs/audio"
	"github.com/xifan2333/gapcapture/pkgs/postprocess"
	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// Error kinds reported to clients and logs.
const (
	KindValidation = "validation_error"
	KindDecode     = "decode_error"
	KindGrammar    = "grammar_error"
	KindTimeout    = "timeout"
	KindInternal   = "internal_error"
)

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	var (
		verr *segment.ValidationError
		derr *audio.DecodeError
		gerr *postprocess.GrammarError
	)
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &derr), errors.Is(err, segment.ErrEmptyWaveform):
		return KindDecode
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &gerr):
		return KindGrammar
	}
	return KindInternal
}

func errorType(err error) string {
	var serr *StageError
	if errors.As(err, &serr) {
		err = serr.Err
	}
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%T", err)
}
