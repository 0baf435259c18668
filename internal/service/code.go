package service

import (
    "crypto/rand"
    "fmt"
    "io"
    "time"

    "github.com/google/uuid"
)

// codeAlphabet leaves out 0/O and 1/I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeGenerator produces booking codes of the form
//
//  BK + YYMMDDhhmm + 4 random alphabet chars + 6-digit zero padded id
//
// e.g. BK2506010814K7QX000042.  The id makes codes unique, the random part
// keeps them from being guessed from neighbouring ids.
type CodeGenerator struct {
    now  func() time.Time
    rand io.Reader
}

// NewCodeGenerator uses time.Now and crypto/rand when given nil.
func NewCodeGenerator(now func() time.Time, r io.Reader) *CodeGenerator {
    if now == nil {
        now = time.Now
    }
    if r == nil {
        r = rand.Reader
    }
    return &CodeGenerator{now: now, rand: r}
}

// Generate returns the code of the booking with the given id.
func (g *CodeGenerator) Generate(id uint64) (string, error) {
    buf := make([]byte, 4)
    if _, err := io.ReadFull(g.rand, buf); err != nil {
        return "", fmt.Errorf("booking code entropy: %w", err)
    }
    // len(codeAlphabet) is 32, so the modulo has no bias.
    for i, b := range buf {
        buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
    }
    return fmt.Sprintf("BK%s%s%06d", g.now().UTC().Format("0601021504"), buf, id), nil
}

// ReturnLegCode is the code of the return leg of a round trip.
func ReturnLegCode(rootCode string) string { return rootCode + "-RTN" }

// LegCode is the code of leg n (2..N) of a multi-city booking.
func LegCode(rootCode string, n int) string { return fmt.Sprintf("%s-L%d", rootCode, n) }

// temporaryCode fills booking_code until the row id is known.
func temporaryCode() string { return "TMP-" + uuid.NewString() }
