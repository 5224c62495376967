package bridge

import (
	"html/template"
	"io"

	"github.com/dknauss/twofactor-bridge/internal/source"
)

// Form fragments emitted by Render. Deliberately bare: the host owns the
// enclosing form, submit control, and any anti-forgery fields.
var (
	codeInputTmpl = template.Must(template.New("code-input").Parse(`<p class="twofactor-code">
<label for="{{.Field}}">{{.Label}}</label>
<input type="text" id="{{.Field}}" name="{{.Field}}" inputmode="numeric" pattern="[0-9]*" autocomplete="one-time-code" maxlength="6" required autofocus />
</p>
`))

	backupInputTmpl = template.Must(template.New("backup-input").Parse(`<details class="twofactor-backup">
<summary>Use a recovery code instead</summary>
<p>
<label for="{{.Field}}">Recovery code</label>
<input type="text" id="{{.Field}}" name="{{.Field}}" autocomplete="off" spellcheck="false" />
</p>
</details>
`))
)

type fragmentData struct {
	Field string
	Label string
}

func writeCodeInput(w io.Writer, field string, method source.Method) error {
	label := "Authentication code"
	if method == source.MethodEmail {
		label = "Code sent to your email address"
	}
	return codeInputTmpl.Execute(w, fragmentData{Field: field, Label: label})
}

func writeBackupInput(w io.Writer, field string) error {
	return backupInputTmpl.Execute(w, fragmentData{Field: field})
}
