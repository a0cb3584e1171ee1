package record_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/record"
)

// capture returns a WriteFn appending to buf.
func capture(buf *bytes.Buffer) record.WriteFn {
	return func(p []byte) {
		buf.Write(p)
	}
}

// payload strips the record header from a serialized record.
func payload(t *testing.T, buf *bytes.Buffer) []byte {
	t.Helper()
	data := buf.Bytes()
	require.GreaterOrEqual(t, len(data), record.HeaderLen)
	size := int(data[0]) | int(data[1])<<8
	require.Len(t, data, record.HeaderLen+size)
	return data[record.HeaderLen:]
}

func TestFileHeader(t *testing.T) {
	t.Run("round trip with flag bits", func(t *testing.T) {
		hdr := record.NewFileHeader(123456, true)
		buf := &bytes.Buffer{}
		require.NoError(t, hdr.Serialize(capture(buf)))
		require.Len(t, buf.Bytes(), record.FileHeaderLen+43)

		parsed, err := record.ParseFileHeader(buf.Bytes())
		require.NoError(t, err)
		flags, err := record.ParseFlagBits(buf.Bytes()[record.FileHeaderLen+record.HeaderLen:])
		require.NoError(t, err)
		parsed.FlagBits = &flags
		require.True(t, hdr.Equal(parsed))
		require.EqualValues(t, record.CompatFlag0DefaultParameters, flags.CompatFlags[0])
	})

	t.Run("bad magic", func(t *testing.T) {
		data := make([]byte, record.FileHeaderLen)
		copy(data, "NotULog!")
		_, err := record.ParseFileHeader(data)
		require.ErrorIs(t, err, ulog.ErrParse)
	})

	t.Run("short preamble", func(t *testing.T) {
		_, err := record.ParseFileHeader([]byte("ULog"))
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestFlagBits(t *testing.T) {
	t.Run("unknown incompat flag detected", func(t *testing.T) {
		fb := record.FlagBits{}
		fb.IncompatFlags[0] = record.IncompatFlag0DataAppended
		require.False(t, fb.HasUnknownIncompat())
		fb.IncompatFlags[0] |= 0x02
		require.True(t, fb.HasUnknownIncompat())

		fb = record.FlagBits{}
		fb.IncompatFlags[7] = 1
		require.True(t, fb.HasUnknownIncompat())
	})

	t.Run("appended data detected", func(t *testing.T) {
		fb := record.FlagBits{}
		require.False(t, fb.HasAppendedData())
		fb.AppendedOffsets[0] = 4096
		require.True(t, fb.HasAppendedData())
	})

	t.Run("short payload", func(t *testing.T) {
		_, err := record.ParseFlagBits(make([]byte, 39))
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestMessageInfo(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		info := record.NewStringInfo("sys_name", "test_value")
		buf := &bytes.Buffer{}
		require.NoError(t, info.Serialize(capture(buf)))

		parsed, err := record.ParseMessageInfo(payload(t, buf), false)
		require.NoError(t, err)
		require.True(t, info.Equal(parsed))
		require.Equal(t, "sys_name", parsed.Key())
	})

	t.Run("multi round trip", func(t *testing.T) {
		info := record.NewStringInfo("list_key", "part two")
		info.IsMulti = true
		info.Continued = true
		buf := &bytes.Buffer{}
		require.NoError(t, info.Serialize(capture(buf)))

		parsed, err := record.ParseMessageInfo(payload(t, buf), true)
		require.NoError(t, err)
		require.True(t, parsed.Continued)
		require.True(t, info.Equal(parsed))
	})

	t.Run("typed values", func(t *testing.T) {
		for _, c := range []struct {
			assertion string
			info      record.MessageInfo
			expected  any
		}{
			{"string", record.NewStringInfo("k", "v"), "v"},
			{"int32", record.NewInt32Info("k", -42), int32(-42)},
			{"float", record.NewFloat32Info("k", 1.5), float32(1.5)},
		} {
			t.Run(c.assertion, func(t *testing.T) {
				require.NoError(t, c.info.Field.Resolve(nil, 0))
				native, err := c.info.TypedValue().Native()
				require.NoError(t, err)
				require.Equal(t, c.expected, native)
			})
		}
	})

	t.Run("short payload", func(t *testing.T) {
		_, err := record.ParseMessageInfo([]byte{5}, false)
		require.ErrorIs(t, err, ulog.ErrParse)
		_, err = record.ParseMessageInfo([]byte{0, 5}, true)
		require.ErrorIs(t, err, ulog.ErrParse)
	})

	t.Run("key length exceeding payload", func(t *testing.T) {
		_, err := record.ParseMessageInfo([]byte{200, 'a', 'b'}, false)
		require.ErrorIs(t, err, ulog.ErrParse)
	})

	t.Run("malformed key", func(t *testing.T) {
		key := []byte("uint8_tnospace")
		payload := append([]byte{byte(len(key))}, key...)
		_, err := record.ParseMessageInfo(payload, false)
		require.ErrorIs(t, err, ulog.ErrParse)
	})

	t.Run("oversized key rejected at serialization", func(t *testing.T) {
		info := record.NewStringInfo(string(bytes.Repeat([]byte{'k'}, 300)), "v")
		err := info.Serialize(capture(&bytes.Buffer{}))
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestParameterDefault(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		p := record.ParameterDefault{
			Field:        record.NewInt32Info("PARAM_A", 7).Field,
			Value:        []byte{7, 0, 0, 0},
			DefaultTypes: record.DefaultTypeSystem | record.DefaultTypeCurrentSetup,
		}
		buf := &bytes.Buffer{}
		require.NoError(t, p.Serialize(capture(buf)))

		parsed, err := record.ParseParameterDefault(payload(t, buf))
		require.NoError(t, err)
		require.Equal(t, p.DefaultTypes, parsed.DefaultTypes)
		require.Equal(t, p.Value, parsed.Value)
		require.Equal(t, "PARAM_A", parsed.Key())
	})

	t.Run("short payload", func(t *testing.T) {
		_, err := record.ParseParameterDefault([]byte{1, 5})
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestAddLoggedMessage(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		a := record.AddLoggedMessage{MultiID: 1, MsgID: 42, MessageName: "vehicle_status"}
		buf := &bytes.Buffer{}
		require.NoError(t, a.Serialize(capture(buf)))

		parsed, err := record.ParseAddLoggedMessage(payload(t, buf))
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	})

	t.Run("short payload", func(t *testing.T) {
		_, err := record.ParseAddLoggedMessage([]byte{0, 1, 0})
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestLogging(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		l := record.NewLogging(record.LevelWarning, "logging message", 3834732)
		buf := &bytes.Buffer{}
		require.NoError(t, l.Serialize(capture(buf)))

		parsed, err := record.ParseLogging(payload(t, buf), false)
		require.NoError(t, err)
		require.Equal(t, l, parsed)
		require.Equal(t, "Warning", parsed.Level.String())
	})

	t.Run("tagged round trip", func(t *testing.T) {
		l := record.Logging{
			Level:     record.LevelError,
			Tag:       7,
			HasTag:    true,
			Timestamp: 12345,
			Message:   "tagged message",
		}
		buf := &bytes.Buffer{}
		require.NoError(t, l.Serialize(capture(buf)))

		parsed, err := record.ParseLogging(payload(t, buf), true)
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	})

	t.Run("out of range level clamps to debug", func(t *testing.T) {
		payload := make([]byte, 10)
		payload[0] = 'z'
		payload[9] = 'm'
		parsed, err := record.ParseLogging(payload, false)
		require.NoError(t, err)
		require.Equal(t, record.LevelDebug, parsed.Level)
	})

	t.Run("short payloads", func(t *testing.T) {
		_, err := record.ParseLogging(make([]byte, 9), false)
		require.ErrorIs(t, err, ulog.ErrParse)
		_, err = record.ParseLogging(make([]byte, 11), true)
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestData(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		d := record.Data{MsgID: 3, Data: []byte{1, 2, 3, 4}}
		buf := &bytes.Buffer{}
		require.NoError(t, d.Serialize(capture(buf)))

		parsed, err := record.ParseData(payload(t, buf))
		require.NoError(t, err)
		require.True(t, d.Equal(parsed))
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		_, err := record.ParseData([]byte{3, 0})
		require.ErrorIs(t, err, ulog.ErrParse)
	})

	t.Run("oversized payload rejected at serialization", func(t *testing.T) {
		d := record.Data{MsgID: 3, Data: make([]byte, 70000)}
		err := d.Serialize(capture(&bytes.Buffer{}))
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}

func TestDropoutAndSync(t *testing.T) {
	t.Run("dropout round trip", func(t *testing.T) {
		d := record.Dropout{DurationMS: 250}
		buf := &bytes.Buffer{}
		require.NoError(t, d.Serialize(capture(buf)))

		parsed, err := record.ParseDropout(payload(t, buf))
		require.NoError(t, err)
		require.Equal(t, d, parsed)
	})

	t.Run("sync round trip", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, record.Sync{}.Serialize(capture(buf)))

		_, err := record.ParseSync(payload(t, buf))
		require.NoError(t, err)
	})

	t.Run("bad sync magic", func(t *testing.T) {
		_, err := record.ParseSync([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		require.ErrorIs(t, err, ulog.ErrParse)
	})
}
