package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [payload|attachment]",
	Short: "Print the JSON Schema of stream payloads and attachments",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	schemas := buildSchemas()
	var out any = schemas
	if len(args) == 1 {
		s, ok := schemas[args[0]]
		if !ok {
			return fmt.Errorf("unknown schema %q: use payload or attachment", args[0])
		}
		out = s
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}

	payload := reflector.Reflect(&stream.Payload{})
	payload.Title = "Stream payload"
	payload.Description = "JSON carried in the data field of each server-sent event"

	attachment := reflector.Reflect(&message.Attachment{})
	attachment.Title = "Context attachment"
	attachment.Description = "Attachment pinned to the next outgoing message"

	return map[string]*jsonschema.Schema{
		"payload":    payload,
		"attachment": attachment,
	}
}
