package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var (
	postPickFlag      string
	postFormFlag      bool
	postMultipartFlag bool
	postPartFlags     []string
)

var postCmd = &cobra.Command{
	Use:   "post <url> [items...]",
	Short: "Send a POST request",
	Long: `Send a POST request and print the data of the response envelope.

The body is JSON unless --form or --multipart is given.

Items:
  Name:value   request header
  key==value   query parameter
  key=value    body field
  key=@path    body field read from a file (JSON, multipart)
  key:=json    raw JSON field (JSON only)
  key@path     file attachment (multipart only)

Examples:
  hitcall post https://api.example.com/users name=lisi age:=20
  hitcall post https://api.example.com/login --form user=lisi password={{password}}
  hitcall post https://api.example.com/upload --multipart avatar@me.png --part token={{$TOKEN}}`,
	Args: cobra.MinimumNArgs(1),
	RunE: postCommand,
}

func init() {
	flags := postCmd.Flags()
	flags.StringVarP(&postPickFlag, "pick", "p", "", "Print only this gjson path of the data")
	flags.BoolVarP(&postFormFlag, "form", "f", false, "Send fields as application/x-www-form-urlencoded")
	flags.BoolVarP(&postMultipartFlag, "multipart", "m", false, "Send fields as multipart/form-data")
	flags.StringArrayVar(&postPartFlags, "part", nil, "Multipart part written before the fields, key=value or key=@path (repeatable)")
	rootCmd.AddCommand(postCmd)
}

func postCommand(cmd *cobra.Command, args []string) error {
	kind, err := bodyKind(postFormFlag, postMultipartFlag)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	spec, err := newRequestSpec(http.MethodPost, kind, args, postPartFlags, s.resolver)
	if err != nil {
		return err
	}
	return s.send(cmd.Context(), spec, postPickFlag)
}
