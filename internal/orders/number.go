package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// maxOrderNumberAttempts bounds regeneration after a unique index collision.
const maxOrderNumberAttempts = 3

var suffixSpace = big.NewInt(10000)

// NewOrderNumber formats ORD-YYYYMMDD-<base36 unix millis>-<4 random digits>.
func NewOrderNumber(now time.Time) string {
	now = now.UTC()
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("ORD-%s-%s-%04d", now.Format("20060102"), stamp, randomSuffix(now))
}

// randomSuffix falls back to the clock only if the system reader fails.
func randomSuffix(now time.Time) int64 {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		return int64(now.Nanosecond()/1000) % suffixSpace.Int64()
	}
	return n.Int64()
}
