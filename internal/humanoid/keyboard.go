package humanoid

import (
	"iter"
	"time"
)

// ControlKey is a control character understood by Executor.SendKeys.
type ControlKey string

const (
	KeyBackspace ControlKey = "\b"
	KeyEnter     ControlKey = "\r"
)

// Kind classifies a keystroke event.
type Kind int

const (
	KindText Kind = iota
	KindBackspace
	KindEnter
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBackspace:
		return "backspace"
	case KindEnter:
		return "enter"
	default:
		return "unknown"
	}
}

// Event is a single keystroke preceded by a pause.
type Event struct {
	Kind  Kind
	Text  string
	Delay time.Duration
	// Typo marks a wrong character that a later backspace removes.
	Typo bool
}

// Keys returns what must be sent to the input for this event.
func (e Event) Keys() string {
	switch e.Kind {
	case KindBackspace:
		return string(KeyBackspace)
	case KindEnter:
		return string(KeyEnter)
	default:
		return e.Text
	}
}

// Simulate lazily yields the keystrokes that type word and submit it.
//
// Without humanlike mode this is the whole word followed by ENTER, with no
// delay. Otherwise every character is typed separately after a decayed
// random delay. A typo is sometimes slipped in after a character, rarely
// followed by a second one, and the typos are erased after a longer pause.
// Words are typed letter by letter, never split inside a UTF-8 sequence.
func (s *Simulator) Simulate(word string, guessCount int) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !s.settings.Humanlike {
			if !yield(Event{Kind: KindText, Text: word}) {
				return
			}
			yield(Event{Kind: KindEnter})
			return
		}

		letters := []rune(word)
		last := MinKeyDelay
		for i, r := range letters {
			d := s.keyDelay(guessCount)
			last = d
			if !yield(Event{Kind: KindText, Text: string(r), Delay: d}) {
				return
			}
			if !s.roll(s.settings.MistakeChance) {
				continue
			}

			offset := s.mistakeOffset(len(letters), i)
			if !yield(Event{Kind: KindText, Text: string(letters[offset]), Delay: d, Typo: true}) {
				return
			}
			typos := 1
			if s.roll(min(s.settings.MistakeChance-0.1, 0.01)) {
				offset = s.mistakeOffset(len(letters), offset)
				if !yield(Event{Kind: KindText, Text: string(letters[offset]), Delay: d, Typo: true}) {
					return
				}
				typos++
			}
			// Erasing starts three key delays after the last typo, then the
			// backspaces follow back to back.
			for n := 0; n < typos; n++ {
				var pause time.Duration
				if n == 0 {
					pause = 3 * d
				}
				if !yield(Event{Kind: KindBackspace, Delay: pause}) {
					return
				}
			}
		}
		yield(Event{Kind: KindEnter, Delay: last})
	}
}

// mistakeOffset picks the letter typed by mistake after position i of an n
// letter word: two ahead when possible, else one behind, else anywhere.
func (s *Simulator) mistakeOffset(n, i int) int {
	if i+2 < n {
		return i + 2
	}
	if i-1 > 0 {
		return i - 1
	}
	return s.intn(n)
}
