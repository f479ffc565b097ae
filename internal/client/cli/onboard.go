package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

var validate = validator.New()

type onboardOptions struct {
	name      string
	age       int
	photo     string
	interests []string
}

func joinInterests(in []string) string {
	return strings.Join(in, ", ")
}

// ask fills the fields that were not passed as flags.
func (a *App) ask(o *onboardOptions) error {
	var err error
	if o.name == "" {
		if o.name, err = GetSimpleText(a.reader, "Display name", a.out); err != nil {
			return err
		}
	}
	if o.age == 0 {
		s, err := GetSimpleText(a.reader, "Age", a.out)
		if err != nil {
			return err
		}
		if o.age, err = strconv.Atoi(s); err != nil {
			return fmt.Errorf("%w: age must be a number", common.ErrorValidation)
		}
	}
	if len(o.interests) == 0 {
		if o.interests, err = GetList(a.reader, "Interests", a.out); err != nil {
			return err
		}
	}
	return nil
}

// Onboard creates or replaces the signed-in user's profile. Input is
// checked locally before the server sees it.
func (a *App) Onboard(ctx context.Context, o onboardOptions) error {
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	if err := a.ask(&o); err != nil {
		return failed(err, "Failed to update profile")
	}

	in := models.ProfileInput{
		DisplayName: strings.TrimSpace(o.name),
		Age:         o.age,
		PhotoURL:    strings.TrimSpace(o.photo),
		Interests:   o.interests,
	}
	if err := validate.Struct(in); err != nil {
		return failed(fmt.Errorf("%w: %s", common.ErrorValidation, describeValidation(err)), "Failed to update profile")
	}

	p, err := a.backend.Profiles.UpsertProfile(ctx, in)
	if err != nil {
		return failed(err, "Failed to update profile")
	}

	a.setView(ViewFeed)
	a.success(fmt.Sprintf("Profile updated successfully! Welcome, %s", p.DisplayName))
	return nil
}

// describeValidation turns validator errors into one readable line.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	var parts []string
	for _, fe := range verrs {
		switch fe.Field() {
		case "DisplayName":
			parts = append(parts, "display name must be 2 to 80 characters")
		case "Age":
			parts = append(parts, "age must be between 16 and 100")
		case "PhotoURL":
			parts = append(parts, "photo must be a URL")
		case "Interests":
			parts = append(parts, "pick at least one interest")
		default:
			parts = append(parts, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func newOnboardCmd(rt *runtime) *cobra.Command {
	var o onboardOptions
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create or update your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.app.Onboard(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&o.name, "name", "", "display name")
	cmd.Flags().IntVar(&o.age, "age", 0, "age, 16 to 100")
	cmd.Flags().StringVar(&o.photo, "photo", "", "photo URL")
	cmd.Flags().StringSliceVar(&o.interests, "interests", nil, "comma separated interests")
	return cmd
}
