package apply

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// DefaultLinkedInPages bounds the Easy Apply fill-and-next loop.
const DefaultLinkedInPages = 5

// genericQuestions matches labels, legends and question-like paragraphs.
var genericQuestions = XPath(`//label | //legend | //p[contains(text(), "?")]`)

var (
	resumeInputs   = []Locator{CSS("input[type='file']")}
	genericSubmit  = []Locator{CSS("button[type='submit']"), CSS("input[type='submit']"), Text("Submit")}
	genericConfirm = []Locator{Text("application submitted"), Text("application received"), Text("thank you for applying")}
)

func personalFields(c jobs.CandidateProfile) []Field {
	return []Field{
		{Name: "name", Keys: []string{"name", "full_name", "fullName", "full name"}, Value: c.Name, Required: true},
		{Name: "email", Keys: []string{"email", "email_address", "emailAddress"}, Value: c.Email, Required: true},
		{Name: "phone", Keys: []string{"phone", "phone_number", "phoneNumber"}, Value: c.Phone},
		{Name: "education", Keys: []string{"education", "school", "university"}, Value: c.Education},
	}
}

// Indeed applies through Indeed's hosted apply form.
type Indeed struct{}

// Kind implements Workflow.
func (Indeed) Kind() jobs.PortalKind { return jobs.PortalIndeed }

// Run implements Workflow.
func (Indeed) Run(ctx context.Context, env *Env) error {
	clicked, err := env.clickIfPresent(ctx, Text("Apply now"))
	if err != nil {
		return err
	}
	if clicked {
		if err := env.settle(ctx); err != nil {
			return err
		}
	}
	c := env.candidate()
	err = env.Filler.FillAll(ctx,
		Field{Name: "name", Keys: []string{"applicant.name", "name"}, Value: c.Name, Required: true},
		Field{Name: "email", Keys: []string{"applicant.email", "email"}, Value: c.Email, Required: true},
		Field{Name: "phone", Keys: []string{"applicant.phoneNumber", "phone"}, Value: c.Phone},
		Field{Name: "education", Keys: []string{"education"}, Value: c.Education},
	)
	if err != nil {
		return err
	}
	if _, err := env.Answerer(CommonRules).AnswerAll(ctx, genericQuestions); err != nil {
		return err
	}
	if err := env.uploadResume(ctx, resumeInputs...); err != nil {
		return err
	}
	if err := env.click(ctx, "submit", Text("Submit Application"), Text("Submit your application")); err != nil {
		return err
	}
	return env.confirm(ctx, Text("application submitted"), Text("your application has been submitted"))
}

// LinkedIn walks the paginated Easy Apply modal. Fields absent on a page are
// skipped; LinkedIn prefills name and email from the member profile.
type LinkedIn struct {
	MaxPages int
}

// Kind implements Workflow.
func (LinkedIn) Kind() jobs.PortalKind { return jobs.PortalLinkedIn }

var (
	linkedInSubmit = []Locator{Text("Submit application")}
	linkedInNext   = []Locator{Text("Next"), Text("Review"), Text("Continue")}
)

// Run implements Workflow.
func (l LinkedIn) Run(ctx context.Context, env *Env) error {
	pages := l.MaxPages
	if pages <= 0 {
		pages = DefaultLinkedInPages
	}
	if err := env.click(ctx, "easy_apply", Text("Easy Apply")); err != nil {
		return err
	}
	if err := env.settle(ctx); err != nil {
		return err
	}
	c := env.candidate()
	answerer := env.Answerer(CommonRules)
	for page := 1; page <= pages; page++ {
		err := env.Filler.FillAll(ctx,
			Field{Name: "email", Keys: []string{"email", "Email address"}, Value: c.Email},
			Field{Name: "phone", Keys: []string{"phone", "phoneNumber", "Mobile phone number"}, Value: c.Phone},
			Field{Name: "education", Keys: []string{"education", "Education", "School"}, Value: c.Education},
		)
		if err != nil {
			return err
		}
		if _, err := answerer.AnswerAll(ctx, genericQuestions); err != nil {
			return err
		}
		if err := env.uploadResume(ctx, resumeInputs...); err != nil {
			return err
		}
		_, ready, err := env.find(ctx, linkedInSubmit...)
		if err != nil {
			return err
		}
		if ready {
			break
		}
		next, err := env.clickIfPresent(ctx, linkedInNext...)
		if err != nil {
			return err
		}
		if !next {
			break
		}
		env.Logger.Debug("easy apply page advanced", zap.Int("page", page))
		if err := env.settle(ctx); err != nil {
			return err
		}
	}
	if err := env.click(ctx, "submit", linkedInSubmit...); err != nil {
		return err
	}
	return env.confirm(ctx, Text("Application submitted"), Text("Your application was sent"))
}

// Generic fills whatever standard form the page offers.
type Generic struct{}

// Kind implements Workflow.
func (Generic) Kind() jobs.PortalKind { return jobs.PortalGeneric }

// Run implements Workflow.
func (Generic) Run(ctx context.Context, env *Env) error {
	if err := env.Filler.FillAll(ctx, personalFields(env.candidate())...); err != nil {
		return err
	}
	if _, err := env.Answerer(CommonRules).AnswerAll(ctx, genericQuestions); err != nil {
		return err
	}
	if err := env.uploadResume(ctx, resumeInputs...); err != nil {
		return err
	}
	if err := env.click(ctx, "submit", genericSubmit...); err != nil {
		return err
	}
	return env.confirm(ctx, genericConfirm...)
}
