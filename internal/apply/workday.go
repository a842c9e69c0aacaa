package apply

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/failure"
	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// DefaultWorkdayRestarts bounds how often the workflow re-enters Start after
// registering or logging in.
const DefaultWorkdayRestarts = 3

type workdayState string

const (
	workdayStart             workdayState = "start"
	workdayAccountCreation   workdayState = "account_creation_required"
	workdayLoginRequired     workdayState = "login_required"
	workdayReadyToApply      workdayState = "ready_to_apply"
	workdayFieldsFilled      workdayState = "fields_filled"
	workdayQuestionsAnswered workdayState = "questions_answered"
	workdayResumeUploaded    workdayState = "resume_uploaded"
	workdaySubmitted         workdayState = "submitted"
)

// Workday page markers.
var (
	workdayRegisterMarkers = []Locator{Identifier("input-4"), CSS("button[data-automation-id='createAccountButton']")}
	workdayLoginMarkers    = []Locator{Identifier("input-1"), CSS("button[data-automation-id='signInSubmitButton']")}
	workdayApplyButton     = CSS("button[data-automation-id='applyButton']")
	workdayCreateButton    = CSS("button[data-automation-id='createAccountButton']")
	workdaySignInButton    = CSS("button[data-automation-id='signInSubmitButton']")
	workdayNextButton      = CSS("button[data-automation-id='bottom-navigation-next-button']")
	workdayQuestionPrompt  = Identifier("questionPrompt")
	workdayResumeInput     = CSS("input[type='file']")
	workdayConfirmation    = []Locator{Text("Application Submitted")}
)

// workdayProfileFields are the structured fields Workday asks engineering
// applicants for. Values come from the candidate's answer map unless noted.
var workdayProfileFields = []string{
	"years of experience",
	"programming languages",
	"frameworks",
	"education level",
	"graduation year",
	"salary expectation",
}

// Workday applies through Workday tenants. It is the one workflow that loops:
// registration and login both return to Start.
type Workday struct {
	MaxRestarts int
}

// Kind implements Workflow.
func (Workday) Kind() jobs.PortalKind { return jobs.PortalWorkday }

// Run implements Workflow.
func (w Workday) Run(ctx context.Context, env *Env) error {
	maxRestarts := w.MaxRestarts
	if maxRestarts <= 0 {
		maxRestarts = DefaultWorkdayRestarts
	}
	restarts := 0
	state := workdayStart
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Logger.Debug("workday state", zap.String("state", string(state)), zap.Int("restarts", restarts))
		var err error
		switch state {
		case workdayStart:
			state, err = w.detect(ctx, env)
		case workdayAccountCreation, workdayLoginRequired:
			if restarts >= maxRestarts {
				// The application form never appeared.
				return failure.New(jobs.ErrorElementMissing, "workday_apply_form",
					fmt.Sprintf("workday still at %s after %d restarts", state, restarts), nil)
			}
			restarts++
			if state == workdayAccountCreation {
				err = w.register(ctx, env)
			} else {
				err = w.login(ctx, env)
			}
			state = workdayStart
		case workdayReadyToApply:
			err = w.fillFields(ctx, env)
			state = workdayFieldsFilled
		case workdayFieldsFilled:
			_, err = env.Answerer(append(append([]Rule{}, WorkdayRules...), CommonRules...)).AnswerAll(ctx, workdayQuestionPrompt)
			state = workdayQuestionsAnswered
		case workdayQuestionsAnswered:
			err = env.uploadResume(ctx, workdayResumeInput)
			state = workdayResumeUploaded
		case workdayResumeUploaded:
			if err = env.click(ctx, "submit", workdayNextButton); err == nil {
				err = env.confirm(ctx, workdayConfirmation...)
			}
			state = workdaySubmitted
		case workdaySubmitted:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (w Workday) detect(ctx context.Context, env *Env) (workdayState, error) {
	_, register, err := env.find(ctx, workdayRegisterMarkers...)
	if err != nil {
		return "", err
	}
	if register {
		return workdayAccountCreation, nil
	}
	_, login, err := env.find(ctx, workdayLoginMarkers...)
	if err != nil {
		return "", err
	}
	if login {
		return workdayLoginRequired, nil
	}
	return workdayReadyToApply, nil
}

func (w Workday) register(ctx context.Context, env *Env) error {
	if env.Candidate == nil {
		return failure.CredentialsMissing(jobs.PortalWorkday)
	}
	if env.Candidate.Workday.Empty() {
		creds, err := GenerateCredentials(env.Candidate.Email, jobs.PortalWorkday)
		if err != nil {
			return failure.New(jobs.ErrorCredentialsMissing, "workday_credentials", "cannot derive workday login", err)
		}
		env.Candidate.Workday = &creds
	}
	creds := env.Candidate.Workday
	err := env.Filler.FillAll(ctx,
		Field{Name: "workday_email", Keys: []string{"input-4"}, Value: creds.Email, Required: true},
		Field{Name: "workday_password", Keys: []string{"input-5"}, Value: creds.Password, Required: true},
		Field{Name: "workday_password_confirm", Keys: []string{"input-6"}, Value: creds.Password},
	)
	if err != nil {
		return err
	}
	if err := env.click(ctx, "create_account", workdayCreateButton); err != nil {
		return err
	}
	if err := env.SaveCandidate(ctx); err != nil {
		env.Logger.Error("save workday credentials failed", zap.Error(err))
	}
	env.Logger.Info("workday account registered", zap.String("workday_email", creds.Email))
	return env.settle(ctx)
}

func (w Workday) login(ctx context.Context, env *Env) error {
	if env.Candidate == nil || env.Candidate.Workday.Empty() {
		return failure.CredentialsMissing(jobs.PortalWorkday)
	}
	creds := env.Candidate.Workday
	err := env.Filler.FillAll(ctx,
		Field{Name: "workday_email", Keys: []string{"input-1"}, Value: creds.Email, Required: true},
		Field{Name: "workday_password", Keys: []string{"input-2"}, Value: creds.Password, Required: true},
	)
	if err != nil {
		return err
	}
	if err := env.click(ctx, "sign_in", workdaySignInButton); err != nil {
		return err
	}
	return env.settle(ctx)
}

func (w Workday) fillFields(ctx context.Context, env *Env) error {
	clicked, err := env.clickIfPresent(ctx, workdayApplyButton)
	if err != nil {
		return err
	}
	if clicked {
		if err := env.settle(ctx); err != nil {
			return err
		}
	}

	c := env.candidate()
	fields := make([]Field, 0, len(workdayProfileFields)+4)
	for _, name := range workdayProfileFields {
		value := c.Answers[name]
		switch {
		case value != "":
		case name == "education level":
			value = c.Education
		case name == "graduation year":
			value = c.GraduationYear
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	first, last := splitName(c.Name)
	fields = append(fields,
		Field{Name: "name", Keys: []string{"firstName", "legalNameSection_firstName", "first name"}, Value: first, Required: true},
		Field{Name: "last_name", Keys: []string{"lastName", "legalNameSection_lastName", "last name"}, Value: last},
		Field{Name: "email", Keys: []string{"email", "emailAddress"}, Value: c.Email, Required: true},
		Field{Name: "phone", Keys: []string{"phone", "phoneNumber", "phone-number"}, Value: c.Phone},
	)
	return env.Filler.FillAll(ctx, fields...)
}
