package cmd

import (
	"net/http"

	hitcallhttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/spf13/cobra"
)

var getPickFlag string

var getCmd = &cobra.Command{
	Use:   "get <url> [items...]",
	Short: "Send a GET request",
	Long: `Send a GET request and print the data of the response envelope.

Items:
  Name:value   request header
  key==value   query parameter

Values may contain {{$ENV_VAR}}, {{name}} from the .env file, and
{{uuid()}}, {{timestamp()}}, {{timestampMs()}} or {{now()}}.

Examples:
  hitcall get https://api.example.com/users/1
  hitcall get https://api.example.com/users page==2 Authorization:"Bearer {{$TOKEN}}"
  hitcall get https://api.example.com/users/1 --pick name`,
	Args: cobra.MinimumNArgs(1),
	RunE: getCommand,
}

func init() {
	getCmd.Flags().StringVarP(&getPickFlag, "pick", "p", "", "Print only this gjson path of the data")
	rootCmd.AddCommand(getCmd)
}

func getCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	spec, err := newRequestSpec(http.MethodGet, hitcallhttp.JSONBody, args, nil, s.resolver)
	if err != nil {
		return err
	}
	return s.send(cmd.Context(), spec, getPickFlag)
}
