package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// newLogger builds the logger handed to the store. Logs go to w, never to
// stdout, so --json output stays parseable.
func newLogger(lc types.LogConfig, w io.Writer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, errors.Wrapf(types.ErrLogLevelUnknown, "level %q", lc.Level)
		}
	}

	var enc zapcore.Encoder
	if lc.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc = zapcore.NewConsoleEncoder(ec)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core), nil
}
