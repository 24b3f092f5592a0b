// Package scenario runs parameterized browser flows: optional account
// provisioning, a list of steps, then an oracle over the final page.
package scenario

import "github.com/ternarybob/webprobe/internal/models"

// HideOverlaysCSS hides the Vue devtools button and panel, which otherwise
// sit on top of form controls in dev builds and swallow clicks.
const HideOverlaysCSS = `.vue-devtools__anchor-btn, .vue-devtools__panel { display: none !important; }`

// Oracle indicator strings rendered by the application under test
const (
	IndicatorAccountInformation = "Account Information"
	IndicatorWelcomeBack        = "Welcome back"
	IndicatorAccountDetails     = "Account details"
	IndicatorUsername           = "Username:"
	IndicatorEmail              = "Email:"
	IndicatorDashboard          = "Dashboard"
	IndicatorLoginSuccessful    = "Login successful"
	IndicatorAccountCreated     = "Account created"
	IndicatorInvalidLogin       = "Invalid email or password"
)

// Front-end routes
const (
	RouteSignup    = "/signup"
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
)

func signupSteps() []models.Step {
	return []models.Step{
		{Action: models.StepActionNavigate, Route: RouteSignup},
		{Action: models.StepActionHideOverlays},
		{
			Action: models.StepActionFill,
			Fields: map[string]string{
				"username":        "{username}",
				"email":           "{email}",
				"password":        "{password}",
				"confirmPassword": "{password}",
			},
			Order: []string{"username", "email", "password", "confirmPassword"},
		},
		{Action: models.StepActionSubmit},
		{Action: models.StepActionWait, Until: []models.Check{
			models.URLContains("dashboard"),
			models.MarkupContains(IndicatorAccountCreated),
		}},
	}
}

func loginSteps() []models.Step {
	return []models.Step{
		{Action: models.StepActionNavigate, Route: RouteLogin},
		{Action: models.StepActionHideOverlays},
		{
			Action: models.StepActionFill,
			Fields: map[string]string{"email": "{email}", "password": "{password}"},
			Order:  []string{"email", "password"},
		},
		{Action: models.StepActionSubmit},
		{Action: models.StepActionWait, Until: []models.Check{
			models.URLContains("dashboard"),
			models.MarkupContains(IndicatorLoginSuccessful),
		}},
	}
}

func dashboardIndicators() []models.Check {
	return []models.Check{
		models.MarkupContains(IndicatorWelcomeBack),
		models.MarkupContains(IndicatorAccountDetails),
		models.MarkupContains(IndicatorUsername),
		models.MarkupContains(IndicatorEmail),
		models.MarkupContains(IndicatorDashboard),
	}
}

// Builtin returns the standard scenario catalogue in execution order
func Builtin() []models.Scenario {
	dashboardSteps := append(loginSteps(),
		models.Step{Action: models.StepActionNavigate, Route: RouteDashboard},
		models.Step{Action: models.StepActionWait, Until: []models.Check{
			models.MarkupContains(IndicatorAccountInformation),
		}},
	)

	scenarios := []models.Scenario{
		{
			Name:        "signup",
			Description: "Sign up through the UI with a fresh account; expect a dashboard redirect or a confirmation",
			Steps:       signupSteps(),
			Oracle: models.Oracle{Any: []models.Check{
				models.URLContains("dashboard"),
				models.MarkupContains(IndicatorAccountCreated),
			}},
		},
		{
			Name:        "signup-dashboard-redirect",
			Description: "Sign up through the UI; require the dashboard with account information",
			Steps: append(signupSteps(), models.Step{Action: models.StepActionWait, Until: []models.Check{
				models.MarkupContains(IndicatorAccountInformation),
			}}),
			Oracle: models.Oracle{All: []models.Check{
				models.URLContains("dashboard"),
				models.MarkupContains(IndicatorAccountInformation),
			}},
		},
		{
			Name:        "login",
			Description: "Log in with a provisioned account; expect the dashboard",
			Provision:   true,
			Steps: append(loginSteps(), models.Step{Action: models.StepActionWait, Until: []models.Check{
				models.MarkupContains(IndicatorAccountInformation),
			}}),
			Oracle: models.Oracle{All: []models.Check{
				models.URLContains("dashboard"),
				models.MarkupContains(IndicatorAccountInformation),
			}},
		},
		{
			Name:        "login-invalid",
			Description: "Log in with unknown credentials; expect to stay on the login page",
			Steps: []models.Step{
				{Action: models.StepActionNavigate, Route: RouteLogin},
				{Action: models.StepActionHideOverlays},
				{
					Action: models.StepActionFill,
					Fields: map[string]string{"email": "nobody{timestamp}@example.com", "password": "WrongPass123!"},
					Order:  []string{"email", "password"},
				},
				{Action: models.StepActionSubmit},
				{Action: models.StepActionWait, Until: []models.Check{
					models.URLContains("dashboard"),
					models.TextContains(IndicatorInvalidLogin),
				}},
			},
			Oracle: models.Oracle{
				All:  []models.Check{models.URLContains("login")},
				None: []models.Check{models.URLContains("dashboard")},
			},
		},
		{
			Name:        "dashboard",
			Description: "Log in with a provisioned account and open the dashboard; partial pass on any account indicator",
			Provision:   true,
			Steps:       dashboardSteps,
			Oracle: models.Oracle{
				All:     []models.Check{models.MarkupContains(IndicatorAccountInformation)},
				Partial: dashboardIndicators(),
			},
		},
		{
			Name:        "dashboard-unauthenticated",
			Description: "Open the dashboard in a fresh session; account information must not be shown",
			Steps: []models.Step{
				{Action: models.StepActionNavigate, Route: RouteDashboard},
				{Action: models.StepActionWait, Until: []models.Check{
					models.URLContains("login"),
					models.MarkupContains(IndicatorAccountInformation),
				}},
			},
			Oracle: models.Oracle{None: []models.Check{models.MarkupContains(IndicatorAccountInformation)}},
		},
	}

	for i := range scenarios {
		scenarios[i].Source = "builtin"
	}
	return scenarios
}
