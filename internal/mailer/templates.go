package mailer

// Confirmation email sources, one set per language. The subject and
// bodies are Liquid templates rendered with confirm_url and site_name.
// Unknown languages fall back to English.

const (
	subjectEN = `Confirm your subscription to {{ site_name | default: "our newsletter" }}`
	htmlEN    = `<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Almost there!</h2>
  <p>Someone (hopefully you) asked to subscribe this address to
  {{ site_name | default: "our newsletter" }}.</p>
  <p>Click the button below to confirm. If you didn't request this,
  just ignore this email and nothing will happen.</p>
  <p style="text-align: center; margin: 32px 0;">
    <a href="{{ confirm_url }}" style="background: #2f6f4f; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Confirm subscription</a>
  </p>
  <p style="color: #666; font-size: 13px;">Or paste this link into your browser:<br>{{ confirm_url }}</p>
</body>
</html>`
	textEN = `Almost there!

Someone (hopefully you) asked to subscribe this address to {{ site_name | default: "our newsletter" }}.

Open the link below to confirm. If you didn't request this, just ignore this email and nothing will happen.

{{ confirm_url }}`

	subjectES = `Confirma tu suscripción a {{ site_name | default: "nuestro boletín" }}`
	htmlES    = `<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>¡Ya casi está!</h2>
  <p>Alguien (esperamos que tú) ha pedido suscribir esta dirección a
  {{ site_name | default: "nuestro boletín" }}.</p>
  <p>Haz clic en el botón para confirmar. Si no lo has solicitado,
  ignora este correo y no pasará nada.</p>
  <p style="text-align: center; margin: 32px 0;">
    <a href="{{ confirm_url }}" style="background: #2f6f4f; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Confirmar suscripción</a>
  </p>
  <p style="color: #666; font-size: 13px;">O pega este enlace en tu navegador:<br>{{ confirm_url }}</p>
</body>
</html>`
	textES = `¡Ya casi está!

Alguien (esperamos que tú) ha pedido suscribir esta dirección a {{ site_name | default: "nuestro boletín" }}.

Abre el enlace para confirmar. Si no lo has solicitado, ignora este correo y no pasará nada.

{{ confirm_url }}`

	subjectFR = `Confirmez votre inscription à {{ site_name | default: "notre lettre d'information" }}`
	htmlFR    = `<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Vous y êtes presque !</h2>
  <p>Quelqu'un (vous, espérons-le) a demandé à inscrire cette adresse à
  {{ site_name | default: "notre lettre d'information" }}.</p>
  <p>Cliquez sur le bouton pour confirmer. Si vous n'êtes pas à
  l'origine de cette demande, ignorez simplement ce message.</p>
  <p style="text-align: center; margin: 32px 0;">
    <a href="{{ confirm_url }}" style="background: #2f6f4f; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Confirmer l'inscription</a>
  </p>
  <p style="color: #666; font-size: 13px;">Ou collez ce lien dans votre navigateur :<br>{{ confirm_url }}</p>
</body>
</html>`
	textFR = `Vous y êtes presque !

Quelqu'un (vous, espérons-le) a demandé à inscrire cette adresse à {{ site_name | default: "notre lettre d'information" }}.

Ouvrez le lien pour confirmer. Si vous n'êtes pas à l'origine de cette demande, ignorez simplement ce message.

{{ confirm_url }}`
)

type templateSource struct {
	subject string
	html    string
	text    string
}

var templateSources = map[string]templateSource{
	"en": {subject: subjectEN, html: htmlEN, text: textEN},
	"es": {subject: subjectES, html: htmlES, text: textES},
	"fr": {subject: subjectFR, html: htmlFR, text: textFR},
}
