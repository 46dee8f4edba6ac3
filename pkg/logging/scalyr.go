package logging

import (
	"encoding/json"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// ScalyrEncoder emits one flat JSON object per entry in the shape the
// Scalyr ingestion pipeline expects: timestamp, level and message at
// the top level with every structured field flattened beside them.
type ScalyrEncoder struct {
	*zapcore.MapObjectEncoder
	config zapcore.EncoderConfig
}

// NewScalyrEncoder creates a new Scalyr-compatible encoder
func NewScalyrEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return &ScalyrEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		config:           config,
	}
}

// Clone copies the encoder together with the fields accumulated through
// Logger.With, so child loggers keep their context.
func (e *ScalyrEncoder) Clone() zapcore.Encoder {
	clone := &ScalyrEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		config:           e.config,
	}
	for k, v := range e.MapObjectEncoder.Fields {
		clone.MapObjectEncoder.Fields[k] = v
	}
	return clone
}

// EncodeEntry encodes a log entry in Scalyr-compatible format
func (e *ScalyrEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := zapcore.NewMapObjectEncoder()
	for k, v := range e.MapObjectEncoder.Fields {
		final.Fields[k] = v
	}
	for _, field := range fields {
		field.AddTo(final)
	}

	logObj := final.Fields
	for k, v := range logObj {
		if d, ok := v.(time.Duration); ok {
			logObj[k] = d.String()
		}
	}

	// Entry metadata wins over a field reusing one of its keys.
	logObj["timestamp"] = entry.Time.Format(time.RFC3339Nano)
	logObj["level"] = entry.Level.String()
	logObj["message"] = entry.Message
	if entry.LoggerName != "" {
		logObj["logger"] = entry.LoggerName
	}
	if entry.Caller.Defined {
		logObj["file"] = entry.Caller.File
		logObj["line"] = entry.Caller.Line
		logObj["function"] = entry.Caller.Function
	}
	if entry.Stack != "" {
		logObj["stack"] = entry.Stack
	}

	buf := bufferPool.Get()
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode appends the newline that separates log lines.
	if err := enc.Encode(logObj); err != nil {
		return nil, err
	}
	return buf, nil
}
