// ABOUTME: Canned reply catalog for the fake chat endpoint
// ABOUTME: Picks a reply by keyword match on the latest user message; loadable from TOML

package endpoint

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Rule maps a set of keywords to a reply. A rule matches when the lowercased
// message contains any keyword.
type Rule struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
	Text     string   `toml:"text"`
}

// Catalog is an ordered rule list plus a fallback reply. The first matching
// rule wins.
type Catalog struct {
	Default string `toml:"default"`
	Rules   []Rule `toml:"rule"`
}

// LoadCatalog reads a catalog from a TOML file:
//
//	default = "Fallback reply"
//
//	[[rule]]
//	name = "greeting"
//	keywords = ["hello", "hi"]
//	text = "Hello there!"
func LoadCatalog(path string) (*Catalog, error) {
	var c Catalog
	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown catalog keys: %v", undecoded)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the catalog can always produce a reply
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Default) == "" {
		return fmt.Errorf("catalog default reply is required")
	}
	for i, r := range c.Rules {
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d (%q) has no keywords", i, r.Name)
		}
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("rule %d (%q) has no text", i, r.Name)
		}
	}
	return nil
}

// Select returns the reply for message
func (c *Catalog) Select(message string) string {
	lower := strings.ToLower(message)
	for _, r := range c.Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return r.Text
			}
		}
	}
	return c.Default
}

// DefaultCatalog returns the built-in fitness coaching replies
func DefaultCatalog() *Catalog {
	return &Catalog{
		Default: defaultReply,
		Rules: []Rule{
			{Name: "routine", Keywords: []string{"routine", "push", "pull", "legs"}, Text: routineReply},
			{Name: "protein", Keywords: []string{"protein", "nutrition", "macro"}, Text: proteinReply},
			{Name: "plateau", Keywords: []string{"plateau", "bench", "stuck", "progress"}, Text: plateauReply},
		},
	}
}

const routineReply = `A well-structured push/pull/legs routine typically follows these principles:

**Push Day (Chest, Shoulders, Triceps):**
- Start with compound movements (bench press, overhead press)
- Follow with isolation work (lateral raises, tricep extensions)
- 12-16 sets total for chest, 8-12 for shoulders, 6-10 for triceps

**Pull Day (Back, Biceps):**
- Begin with vertical pulls (pull-ups, lat pulldowns)
- Add horizontal pulls (rows)
- Finish with bicep isolation
- 14-18 sets for back, 6-10 for biceps

**Legs (Quads, Hamstrings, Glutes, Calves):**
- Prioritize compound movements (squats, deadlifts)
- Include unilateral work (lunges, single-leg RDLs)
- 16-20 sets total for legs

Run this 3-6x per week depending on your recovery capacity and training experience.`

const proteinReply = `For muscle protein synthesis and growth, research suggests:

**General Recommendations:**
- 1.6-2.2g per kg of body weight daily
- For a 70kg person: 112-154g protein daily
- Higher end for cutting phases or older individuals

**Timing Considerations:**
- 20-40g per meal for optimal MPS stimulation
- Post-workout: 25-40g within 2 hours
- Before bed: 20-30g casein for overnight recovery

**Quality Matters:**
- Complete proteins with all essential amino acids
- Leucine content of 2.5-3g per meal triggers MPS
- Mix animal and plant sources for variety

Remember, total daily intake matters more than precise timing for most people.`

const plateauReply = `Plateau-busting strategies for bench press:

**Programming Adjustments:**
- Vary rep ranges (3-5, 6-8, 8-12)
- Add pause reps to improve strength off chest
- Include tempo work (3-second negatives)
- Try different grip widths

**Accessory Work:**
- Close-grip bench for tricep strength
- Incline press for upper chest development
- Dips for lockout strength
- Face pulls for rear delt balance

**Technical Improvements:**
- Work on leg drive and arch
- Practice competition commands if powerlifting
- Film yourself to check bar path

**Recovery Factors:**
- Ensure adequate sleep (7-9 hours)
- Manage stress levels
- Consider a deload week every 4-6 weeks

Sometimes stepping back 10-15% and building back up breaks through sticking points.`

const defaultReply = `Thanks for your question! I'm a training assistant focused on evidence-based guidance for training, nutrition, and recovery.

**What I Can Help With:**
- Program design and periodization
- Nutrition for performance and body composition
- Exercise technique and selection
- Recovery strategies and sleep optimization

**Remember:** This is educational content only, not medical advice.

What would you like to explore?`
