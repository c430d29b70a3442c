package memory

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 任意追加序列下，序号从 1 开始连续，无空洞无重复。
func TestProperty_OrdinalsContiguous(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewStore(StoreConfig{}, nil)
		speakers := []string{"BrokerBobby", "CynicalCedric_economist", "DreamyDrew_poet"}

		n := rapid.IntRange(0, 200).Draw(rt, "appends")
		for i := 0; i < n; i++ {
			speaker := rapid.SampledFrom(speakers).Draw(rt, "speaker")
			text := rapid.String().Draw(rt, "text")
			msg := s.Append(speaker, text)
			require.Equal(rt, int64(i+1), msg.Ordinal)
		}

		all := s.Messages()
		require.Len(rt, all, n)
		for i, m := range all {
			require.Equal(rt, int64(i+1), m.Ordinal)
		}
		require.Equal(rt, int64(n), s.LastOrdinal())
	})
}

// UnseenSince 在 lastSeen 推进到最大已见序号后再次调用，结果为空。
func TestProperty_UnseenSinceIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("second reconcile without appends yields nothing", prop.ForAll(
		func(total int, seenFrac int) bool {
			s := NewStore(StoreConfig{}, nil)
			for i := 0; i < total; i++ {
				s.Append("p", "m")
			}
			lastSeen := int64(0)
			if total > 0 {
				lastSeen = int64(seenFrac % (total + 1))
			}

			first := s.UnseenSince(lastSeen)
			if int64(len(first)) != int64(total)-lastSeen {
				return false
			}
			for i, m := range first {
				if m.Ordinal != lastSeen+int64(i)+1 {
					return false
				}
			}
			if len(first) > 0 {
				lastSeen = first[len(first)-1].Ordinal
			}
			return len(s.UnseenSince(lastSeen)) == 0
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// RecentWindow 返回长度为 min(size, len) 的后缀。
func TestProperty_RecentWindowIsSuffix(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("window is the trailing min(size, len) messages", prop.ForAll(
		func(total int, size int) bool {
			s := NewStore(StoreConfig{}, nil)
			for i := 0; i < total; i++ {
				s.Append("p", "m")
			}
			w := s.RecentWindow(size)

			want := size
			if want > total {
				want = total
			}
			if want < 0 {
				want = 0
			}
			if len(w) != want {
				return false
			}
			for i, m := range w {
				if m.Ordinal != int64(total-want+i+1) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(-5, 80),
	))

	properties.TestingRun(t)
}
