package cli

import (
	"context"

	"talentloop/internal/common"
	"talentloop/internal/types"

	"github.com/spf13/cobra"
)

var profileConfig common.CommandConfig

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &profileConfig)
	},
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			return runAPICommand(cmd, rt, profileConfig, "profile.get", func(ctx context.Context) (types.Profile, error) {
				p, err := rt.client.GetProfile(ctx)
				if err != nil {
					return types.Profile{}, err
				}
				return *p, nil
			})
		})
	},
}

var profileUpdate types.Profile

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update editable profile fields",
	Long: `Update the editable profile fields. Only the flags that are set are sent;
email cannot be changed here.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *env) error {
			return runAPICommand(cmd, rt, profileConfig, "profile.update", func(ctx context.Context) (types.Profile, error) {
				p, err := rt.client.UpdateProfile(ctx, profileUpdate)
				if err != nil {
					return types.Profile{}, err
				}
				return *p, nil
			})
		})
	},
}

func init() {
	outputFlags(profileGetCmd, &profileConfig)
	outputFlags(profileUpdateCmd, &profileConfig)

	f := profileUpdateCmd.Flags()
	f.StringVar(&profileUpdate.FirstName, "first-name", "", "First name")
	f.StringVar(&profileUpdate.LastName, "last-name", "", "Last name")
	f.StringVar(&profileUpdate.Phone, "phone", "", "Phone number")
	f.StringVar(&profileUpdate.PreferredLanguage, "language", "", "Preferred language")
	f.StringVar(&profileUpdate.Timezone, "timezone", "", "Timezone, e.g. Europe/Berlin")

	profileCmd.AddCommand(profileGetCmd, profileUpdateCmd)
}
