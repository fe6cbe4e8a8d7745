package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"1024", 1024, false},
		{"1KB", KB, false},
		{"1kib", KiB, false},
		{"10Mi", 10 * MiB, false},
		{" 2 GiB ", 2 * GiB, false},
		{"1.5MiB", ByteSize(1.5 * float64(MiB)), false},
		{"1TB", TB, false},
		{"", 0, true},
		{"abc", 0, true},
		{"12XB", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("64KiB")))
	assert.Equal(t, 64*KiB, b)
	assert.Error(t, b.UnmarshalText([]byte("lots")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "1.00KiB", KiB.String())
	assert.Equal(t, "1.50MiB", ByteSize(1536*KiB).String())
	assert.Equal(t, "2.00GiB", (2 * GiB).String())
}

func TestYAMLRoundTrip(t *testing.T) {
	type doc struct {
		Size ByteSize `yaml:"size"`
	}
	for _, size := range []ByteSize{0, 1000, 4 * KiB, 100 * MiB, 3 * GiB} {
		out, err := yaml.Marshal(doc{Size: size})
		require.NoError(t, err)

		var back struct {
			Size string `yaml:"size"`
		}
		require.NoError(t, yaml.Unmarshal(out, &back))
		parsed, err := ParseByteSize(back.Size)
		require.NoError(t, err)
		assert.Equal(t, size, parsed, "yaml %q", out)
	}
}

func TestInt64Saturates(t *testing.T) {
	assert.Equal(t, int64(10), ByteSize(10).Int64())
	assert.Equal(t, int64(1<<63-1), ByteSize(1<<64-1).Int64())
}
