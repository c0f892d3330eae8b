package intent

import (
	"regexp"

	"funnel-workers/internal/models"
)

type signal struct {
	intent   models.Intent
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Patterns run against lowercased text, so they are written in lowercase.
var signals = []signal{
	{models.IntentNewProjectSales, compileAll(
		`want\s+to\s+make\s+(an\s+)?animated`,
		`need\s+(a\s+)?promo\s+video`,
		`looking\s+for\s+animation`,
		`looking\s+for\s+animation\s+services`,
		`i\s+(am|m)\s+looking\s+for`,
		`animated\s+film`,
		`promo\s+video`,
		`animation\s+services`,
		`new\s+project`,
		`we\s+need\s+`,
		`make\s+(a\s+)?(short|film|video)`,
		`need\s+animation`,
		`want\s+animation`,
	)},
	{models.IntentPriceEstimation, compileAll(
		`how\s+much\s+will\s+it\s+cost`,
		`budget\s+for`,
		`how\s+much`,
		`cost\s+`,
		`price\s+`,
		`quote`,
		`estimate`,
		`estimation`,
		`\d+d\s+short\s+film`,
	)},
	{models.IntentGeneralServicesQuery, compileAll(
		`what\s+services\s+(do\s+you\s+)?(offer|provide)`,
		`services\s+you\s+(offer|provide)`,
		`what\s+do\s+you\s+(offer|provide)`,
		`wh+t\s+do\s+you\s+offer`,
		`offer\s+(me|us)?\b`,
		`provide\b`,
		`company\s+about|about\s+(the\s+)?company`,
		`what\s+is\s+(this\s+)?company`,
		`tell\s+me\s+about\s+(you|your|company|services)`,
		`what\s+(do|does)\s+(this\s+)?(company|xyz)\b`,
		`do\s+you\s+do\s+2d\s+or\s+3d`,
		`what\s+is\s+your\s+process`,
		`services\s+you\s+offer`,
		`2d\s+or\s+3d`,
		`\b2d\b`,
		`\b3d\b`,
		`(2d|3d)\s+animation`,
		`animation\s+(2d|3d)`,
		`your\s+process`,
	)},
	{models.IntentComplaintIssue, compileAll(
		`not\s+happy\s+with\s+previous`,
		`delay\s+in\s+delivery`,
		`quality\s+issue`,
		`complaint`,
		`unhappy`,
		`disappointed`,
		`issue\s+with`,
		`refund`,
		`wrong\s+`,
		`not\s+what\s+i\s+expected`,
	)},
	{models.IntentSuggestionFeedback, compileAll(
		`i\s+have\s+an\s+idea`,
		`you\s+should\s+add`,
		`suggest`,
		`feedback`,
		`idea\s+`,
		`recommend`,
	)},
	{models.IntentCareerHiring, compileAll(
		`are\s+you\s+hiring`,
		`internship`,
		`job\s+opening`,
		`hiring`,
		`career`,
		`job\s+`,
		`intern`,
	)},
	{models.IntentUnknownChitchat, compileAll(
		`hello`,
		`hi\b`,
		`hey\b`,
		`good\s+morning`,
		`thanks`,
		`bye`,
	)},
}

var tagPatterns = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"short_film", regexp.MustCompile(`(?i)\b(short\s+film|short\s+video)\b`)},
	{"series", regexp.MustCompile(`(?i)\b(series|episode)\b`)},
	{"ad", regexp.MustCompile(`(?i)\b(ad|promo|commercial)\b`)},
	{"explainer", regexp.MustCompile(`(?i)\bexplainer\b`)},
	{"2d", regexp.MustCompile(`(?i)\b2d\b`)},
	{"3d", regexp.MustCompile(`(?i)\b3d\b`)},
	{"pixar_style", regexp.MustCompile(`(?i)\b(pixar|anime|realistic)\b`)},
}

var (
	i2dPattern = regexp.MustCompile(`\bi2d\b`)
	i3dPattern = regexp.MustCompile(`\bi3d\b`)
)
