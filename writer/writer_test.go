package writer_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/container"
	"github.com/wkalt/ulog/reader"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/value"
	"github.com/wkalt/ulog/writer"
)

func newBufferedSimpleWriter(t *testing.T) (*bytes.Buffer, *writer.SimpleWriter) {
	t.Helper()
	buf := &bytes.Buffer{}
	w, err := writer.NewSimpleWriter(func(p []byte) {
		buf.Write(p)
	}, 0)
	require.NoError(t, err)
	return buf, w
}

func myDataFields() []*schema.Field {
	return []*schema.Field{
		schema.NewField("uint64_t", "timestamp", -1),
		schema.NewField("float", "debug_array", 4),
		schema.NewField("float", "cpuload", -1),
		schema.NewField("float", "temperature", -1),
		schema.NewField("int8_t", "counter", -1),
	}
}

func TestSimpleWriterValidation(t *testing.T) {
	_, w := newBufferedSimpleWriter(t)

	cases := []struct {
		assertion string
		name      string
		fields    []*schema.Field
	}{
		{
			"format requiring padding",
			"invalid_require_padding",
			[]*schema.Field{
				schema.NewField("uint64_t", "timestamp", -1),
				schema.NewField("int8_t", "a", -1),
				schema.NewField("float", "b", -1),
			},
		},
		{
			"nested field type",
			"invalid_type",
			[]*schema.Field{
				schema.NewField("uint64_t", "timestamp", -1),
				schema.NewField("my_type", "a", -1),
			},
		},
		{
			"missing leading timestamp",
			"invalid_no_timestamp",
			[]*schema.Field{
				schema.NewField("int8_t", "a", -1),
			},
		},
		{
			"timestamp of wrong type",
			"invalid_timestamp_type",
			[]*schema.Field{
				schema.NewField("uint32_t", "timestamp", -1),
			},
		},
		{
			"field name with slash",
			"invalid_field_name",
			[]*schema.Field{
				schema.NewField("uint64_t", "timestamp", -1),
				schema.NewField("int8_t", "a/b", -1),
			},
		},
		{
			"format name with spaces",
			"invalid name",
			[]*schema.Field{
				schema.NewField("uint64_t", "timestamp", -1),
			},
		},
		{
			"no fields",
			"no_fields",
			nil,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			err := w.WriteMessageFormat(c.name, c.fields)
			require.ErrorIs(t, err, ulog.ErrUsage)
		})
	}

	t.Run("duplicate format name", func(t *testing.T) {
		require.NoError(t, w.WriteMessageFormat("dup", []*schema.Field{
			schema.NewField("uint64_t", "timestamp", -1),
		}))
		require.ErrorIs(t, w.WriteMessageFormat("dup", []*schema.Field{
			schema.NewField("uint64_t", "timestamp", -1),
		}), ulog.ErrUsage)
	})
}

func TestSimpleWriterCallOrder(t *testing.T) {
	_, w := newBufferedSimpleWriter(t)
	require.NoError(t, w.WriteMessageFormat("my_data", myDataFields()))

	t.Run("data section calls before header completion fail", func(t *testing.T) {
		_, err := w.WriteAddLoggedMessage("my_data", 0)
		require.ErrorIs(t, err, ulog.ErrUsage)
		require.ErrorIs(t, w.WriteTextMessage(record.LevelInfo, "too early", 0), ulog.ErrUsage)
		require.ErrorIs(t, w.WriteData(0, make([]byte, 64)), ulog.ErrUsage)
		require.ErrorIs(t, w.WriteParameterChangeInt32("P", 1), ulog.ErrUsage)
	})

	require.NoError(t, w.HeaderComplete())

	t.Run("header section calls after completion fail", func(t *testing.T) {
		require.ErrorIs(t, w.HeaderComplete(), ulog.ErrUsage)
		require.ErrorIs(t, w.WriteParameterInt32("P", 1), ulog.ErrUsage)
		require.ErrorIs(t, w.WriteMessageFormat("late", []*schema.Field{
			schema.NewField("uint64_t", "timestamp", -1),
		}), ulog.ErrUsage)
	})

	t.Run("subscriptions get sequential ids", func(t *testing.T) {
		id0, err := w.WriteAddLoggedMessage("my_data", 0)
		require.NoError(t, err)
		id1, err := w.WriteAddLoggedMessage("my_data", 1)
		require.NoError(t, err)
		require.Equal(t, uint16(0), id0)
		require.Equal(t, uint16(1), id1)

		_, err = w.WriteAddLoggedMessage("unknown_format", 0)
		require.ErrorIs(t, err, ulog.ErrUsage)
	})

	t.Run("data size is validated", func(t *testing.T) {
		require.ErrorIs(t, w.WriteData(0, make([]byte, 10)), ulog.ErrUsage)
		require.ErrorIs(t, w.WriteData(9, make([]byte, 64)), ulog.ErrUsage)
	})
}

// myDataSample encodes one sample of the my_data format; extra trailing
// bytes model struct padding the writer must ignore.
func myDataSample(i int, cpuload float32) []byte {
	buf := make([]byte, 36)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(i)*1000)
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(cpuload))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(38.5))
	buf[32] = byte(int8(i))
	return buf
}

func TestSimpleWriterRoundTrip(t *testing.T) {
	buf, w := newBufferedSimpleWriter(t)

	require.NoError(t, w.WriteInfoString("sys_name", "ULogExampleWriter"))
	require.NoError(t, w.WriteParameterFloat32("PARAM_A", 382.23))
	require.NoError(t, w.WriteParameterInt32("PARAM_B", 8272))
	require.NoError(t, w.WriteMessageFormat("my_data", myDataFields()))
	require.NoError(t, w.HeaderComplete())

	msgID, err := w.WriteAddLoggedMessage("my_data", 0)
	require.NoError(t, err)
	require.NoError(t, w.WriteTextMessage(record.LevelInfo, "Hello world", 0))

	cpuload := float32(25.423)
	for i := 0; i < 100; i++ {
		require.NoError(t, w.WriteData(msgID, myDataSample(i, cpuload)))
		cpuload -= 0.424
	}

	dc := container.New(container.StorageFullLog)
	require.NoError(t, reader.New(dc).ReadChunk(buf.Bytes()))
	require.Empty(t, dc.ParsingErrors())
	require.False(t, dc.HadFatalError())

	sysName, err := value.As[string](dc.MessageInfos()["sys_name"].TypedValue())
	require.NoError(t, err)
	require.Equal(t, "ULogExampleWriter", sysName)

	paramA, err := value.As[float32](dc.InitialParameters()["PARAM_A"].TypedValue())
	require.NoError(t, err)
	require.Equal(t, float32(382.23), paramA)
	paramB, err := value.As[int32](dc.InitialParameters()["PARAM_B"].TypedValue())
	require.NoError(t, err)
	require.Equal(t, int32(8272), paramB)

	require.Len(t, dc.LogMessages(), 1)
	require.Equal(t, "Hello world", dc.LogMessages()[0].Message)

	require.Equal(t, []string{"my_data"}, dc.SubscriptionNames())
	sub, err := dc.Subscription("my_data", 0)
	require.NoError(t, err)
	require.Equal(t, 100, sub.Size())

	cpuload = 25.423
	for i := 0; i < sub.Size(); i++ {
		sample, err := sub.At(i)
		require.NoError(t, err)
		// the sample is cut to the declared message size, padding dropped
		require.Len(t, sample.RawData(), 33)

		ts, err := value.As[uint64](sample.Value("timestamp"))
		require.NoError(t, err)
		require.Equal(t, uint64(i)*1000, ts)
		load, err := value.As[float32](sample.Value("cpuload"))
		require.NoError(t, err)
		require.Equal(t, cpuload, load)
		counter, err := value.As[int8](sample.Value("counter"))
		require.NoError(t, err)
		require.Equal(t, int8(i), counter)
		cpuload -= 0.424
	}
}

func TestSimpleWriterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ulg")
	w, err := writer.NewSimpleWriterFile(path, 77)
	require.NoError(t, err)
	require.NoError(t, w.WriteMessageFormat("my_data", myDataFields()))
	require.NoError(t, w.HeaderComplete())
	msgID, err := w.WriteAddLoggedMessage("my_data", 0)
	require.NoError(t, err)
	require.NoError(t, w.WriteData(msgID, myDataSample(1, 1.0)))
	require.NoError(t, w.Fsync())
	require.NoError(t, w.Close())

	stream, err := os.ReadFile(path)
	require.NoError(t, err)
	dc := container.New(container.StorageFullLog)
	require.NoError(t, reader.New(dc).ReadChunk(stream))
	require.Empty(t, dc.ParsingErrors())
	require.EqualValues(t, 77, dc.GetFileHeader().Timestamp)
	sub, err := dc.Subscription("my_data", 0)
	require.NoError(t, err)
	require.Equal(t, 1, sub.Size())
}

func TestLowLevelWriterStateChecks(t *testing.T) {
	w := writer.New(func([]byte) {})
	format, err := schema.ParseFormat([]byte("m:uint64_t timestamp;"))
	require.NoError(t, err)

	require.ErrorIs(t,
		w.AddLoggedMessage(record.AddLoggedMessage{MsgID: 0, MessageName: "m"}), ulog.ErrParse)
	require.NoError(t, w.MessageFormat(format))
	require.NoError(t, w.HeaderComplete())
	require.ErrorIs(t, w.MessageFormat(format), ulog.ErrParse)
	require.NoError(t,
		w.AddLoggedMessage(record.AddLoggedMessage{MsgID: 0, MessageName: "m"}))
}
