// Package anonymize derives stable pseudonyms for leaderboard display.
package anonymize

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var adjectives = []string{
	"Amber", "Brave", "Bright", "Calm", "Clever", "Curious", "Eager", "Gentle",
	"Golden", "Happy", "Humble", "Jolly", "Keen", "Lively", "Lucky", "Mellow",
	"Nimble", "Quiet", "Rapid", "Sunny", "Swift", "Tidy", "Vivid", "Witty",
}

var animals = []string{
	"Badger", "Dolphin", "Falcon", "Fox", "Gecko", "Heron", "Ibis", "Koala",
	"Lynx", "Manta", "Otter", "Owl", "Panda", "Puffin", "Raven", "Seal",
	"Sparrow", "Tiger", "Turtle", "Walrus", "Whale", "Wolf", "Wren", "Yak",
}

// DisplayName returns realName unless anonymize is set, in which case it
// returns a pseudonym that depends only on id.
func DisplayName(id string, anonymize bool, realName string) string {
	if !anonymize {
		return realName
	}
	return Pseudonym(id)
}

// Pseudonym maps id to "Adjective Animal NN".
func Pseudonym(id string) string {
	sum := blake2b.Sum256([]byte(id))
	a := binary.BigEndian.Uint32(sum[0:4])
	b := binary.BigEndian.Uint32(sum[4:8])
	n := binary.BigEndian.Uint16(sum[8:10])
	return fmt.Sprintf("%s %s %02d",
		adjectives[a%uint32(len(adjectives))],
		animals[b%uint32(len(animals))],
		n%100,
	)
}
