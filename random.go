package rtp

import "github.com/pion/randutil"

// globalMathRandomGenerator backs the random initial sequence number
// chosen by NewRandomSequencer.
var globalMathRandomGenerator = randutil.NewMathRandomGenerator()
