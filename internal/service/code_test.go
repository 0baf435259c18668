package service

import (
    "bytes"
    "regexp"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestCodeFormat(t *testing.T) {
    g := NewCodeGenerator(clock, bytes.NewReader([]byte{0, 1, 31, 32}))
    code, err := g.Generate(42)
    require.NoError(t, err)
    assert.Equal(t, "BK2505200930AB9A000042", code)

    live := NewCodeGenerator(nil, nil)
    code, err = live.Generate(1234567)
    require.NoError(t, err)
    assert.Regexp(t, regexp.MustCompile(`^BK\d{10}[A-HJ-NP-Z2-9]{4}1234567$`), code)
}

func TestCodeGeneratorEntropyExhausted(t *testing.T) {
    g := NewCodeGenerator(clock, bytes.NewReader([]byte{1, 2}))
    _, err := g.Generate(1)
    assert.Error(t, err)
}

func TestLegCodes(t *testing.T) {
    assert.Equal(t, "BK2505200930AAAA000050-RTN", ReturnLegCode("BK2505200930AAAA000050"))
    assert.Equal(t, "BK2505200930AAAA000060-L3", LegCode("BK2505200930AAAA000060", 3))
    assert.Regexp(t, `^TMP-[0-9a-f-]{36}$`, temporaryCode())
}

func TestLegErrorUnwraps(t *testing.T) {
    err := legErr(2, ErrSeatUnavailable)
    assert.ErrorIs(t, err, ErrSeatUnavailable)
    assert.Same(t, err, legErr(3, err))
    assert.Contains(t, err.Error(), "leg 2")
}
