package core

import "strings"

// Curated advice served by get_safety_tips. Keys are situation types; a web
// search supplements these when a searcher is configured.
var safetyTips = map[string][]string{
	"walking alone": {
		"Stay in well-lit, populated areas and avoid shortcuts through isolated places.",
		"Keep your phone charged and accessible, not buried in a bag.",
		"Share your route and expected arrival time with someone you trust.",
		"Stay off headphones or keep one ear free so you can hear your surroundings.",
	},
	"home security": {
		"Lock all doors and windows, including upper floors, whenever you leave or sleep.",
		"Use exterior lighting with motion sensors around entrances.",
		"Do not advertise absences on social media while you are away.",
		"Know your neighbors; an attentive street is the cheapest alarm system.",
	},
	"public transport": {
		"Wait in designated, well-lit areas near other passengers.",
		"Sit near the driver or conductor on a quiet service.",
		"Keep valuables out of sight and bags zipped and in front of you.",
	},
	"online safety": {
		"Never share your live location or daily routine publicly.",
		"Use unique passwords and enable two-factor authentication.",
		"Be wary of new contacts who push to move conversations to private channels quickly.",
	},
	"stalking": {
		"Document every incident with dates, times, places and descriptions.",
		"Vary your routes and routines.",
		"Tell people around you (work, school, building security) so they can watch for the person.",
		"Report the pattern to police; stalking is the pattern, not a single event.",
	},
	"harassment": {
		"Keep records of messages, calls and encounters.",
		"Do not engage or retaliate; responses are often used to escalate.",
		"Report through official channels (platform, employer, police) rather than handling it alone.",
	},
	"nighttime": {
		"Plan your route before leaving and stick to main roads.",
		"Have your keys ready before you reach your door or car.",
		"Trust your instincts: if a situation feels wrong, leave immediately.",
	},
}

// generalSafetyTips is the fallback when no situation type matches.
var generalSafetyTips = []string{
	"Stay aware of your surroundings and avoid distractions in unfamiliar places.",
	"Trust your instincts; discomfort is information.",
	"Keep emergency numbers saved and your phone charged.",
	"Tell someone where you are going and when to expect you back.",
}

// tipsFor returns the curated tips for a situation type, falling back to the
// general list. Matching is substring-based in both directions so "walking
// alone at night" still hits "walking alone".
func tipsFor(situationType string) (string, []string) {
	needle := strings.ToLower(strings.TrimSpace(situationType))
	for key, tips := range safetyTips {
		if strings.Contains(needle, key) || strings.Contains(key, needle) {
			return key, tips
		}
	}
	return "general", generalSafetyTips
}

// Curated legal summaries served by get_legal_information, keyed by topic.
// These are orientation-level summaries, not legal advice, and the
// capability says so in its output.
var legalTopics = map[string][]string{
	"reporting a crime": {
		"You can report crimes to your local police station in person, by phone, or in many countries online.",
		"You generally have the right to receive a report reference number; keep it for follow-ups.",
		"Witnesses can usually report anonymously through dedicated hotlines.",
	},
	"self defense": {
		"Most jurisdictions permit reasonable, proportionate force to protect yourself from imminent harm.",
		"What counts as proportionate varies widely by country; force beyond the threat can itself be an offense.",
		"Retreat requirements differ: some places require retreating when safely possible, others do not.",
	},
	"restraining order": {
		"Courts can order a person to stay away from you; the process and names differ by jurisdiction (protection order, non-molestation order).",
		"Documented evidence of harassment or threats strengthens an application.",
		"Violating such an order is typically a criminal offense on its own.",
	},
	"victim rights": {
		"Victims generally have the right to be informed of case progress and of the offender's release where applicable.",
		"Many jurisdictions provide victim compensation schemes for violent crime.",
		"Victim support organizations can accompany you through reporting and court processes.",
	},
	"harassment law": {
		"Repeated unwanted contact that causes distress is a criminal or civil offense in most jurisdictions.",
		"Preserve the evidence: messages, call logs, and a diary of incidents.",
		"Online harassment is covered by the same or dedicated statutes in many countries.",
	},
}

func legalInfoFor(topic string) (string, []string, bool) {
	needle := strings.ToLower(strings.TrimSpace(topic))
	for key, lines := range legalTopics {
		if strings.Contains(needle, key) || strings.Contains(key, needle) {
			return key, lines, true
		}
	}
	return "", nil, false
}

// threatPatternIndicators is the catalog consulted by analyze_threat_patterns.
// Each entry pairs trigger phrases with what the pattern typically signifies.
var threatPatternIndicators = []struct {
	Pattern    string
	Triggers   []string
	Meaning    string
	Suggestion string
}{
	{
		Pattern:    "surveillance",
		Triggers:   []string{"watching", "parked", "same car", "same person", "taking photos", "following"},
		Meaning:    "Repeated observation of a place or person often precedes burglary or targeted harassment.",
		Suggestion: "Note times, descriptions and plate numbers; report the pattern rather than single sightings.",
	},
	{
		Pattern:    "escalation",
		Triggers:   []string{"getting worse", "more frequent", "escalating", "threatened", "angrier"},
		Meaning:    "Incidents growing in frequency or intensity indicate rising risk.",
		Suggestion: "Do not wait for a major incident; involve authorities while the pattern is documented.",
	},
	{
		Pattern:    "isolation",
		Triggers:   []string{"alone", "isolated", "no one around", "cut off", "deserted"},
		Meaning:    "Offenders select moments and places where help is far away.",
		Suggestion: "Change routines that put you alone in predictable places; travel with others where possible.",
	},
	{
		Pattern:    "probing",
		Triggers:   []string{"knocked", "tried the door", "asked questions", "testing", "checked the lock"},
		Meaning:    "Testing doors, locks or occupancy is reconnaissance for entry.",
		Suggestion: "Harden the probed entry point and report the attempt; probing is often repeated nearby.",
	},
}
