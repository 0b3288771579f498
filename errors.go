package rtp

import "errors"

var (
	errHeaderSizeInsufficient = errors.New("RTP header size insufficient")
	errTooSmall               = errors.New("buffer too small")
	errInvalidRTPPadding      = errors.New("invalid RTP padding")
)
