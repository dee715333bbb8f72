package features

import (
	"math"

	"quantdir/internal/frame"
)

// Return column names.
const (
	ColRet1    = "ret_1"
	ColLogRet1 = "log_ret_1"
)

// AddReturns returns a copy of t with the one-period simple return ret_1 and
// log return log_ret_1 of the close. The first row has no prior close and is
// undefined in both columns.
func AddReturns(t *frame.Table) *frame.Table {
	closes := t.Column(frame.ColClose)
	logRet := undefined(len(closes))
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if frame.IsNA(prev) || frame.IsNA(cur) || prev <= 0 || cur <= 0 {
			continue
		}
		logRet[i] = math.Log(cur / prev)
	}
	return t.
		With(ColRet1, pctChange(closes, 1)).
		With(ColLogRet1, logRet)
}
