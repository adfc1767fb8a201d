package mailer

import "html/template"

// Email bodies mirror the storefront branding. Links point at the SPA
// routes that consume the embedded token.

var verificationTemplate = template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #0f172a; color: white; padding: 30px; text-align: center;">
    <h1 style="margin: 0; color: #3b82f6;">UncleFab</h1>
    <p style="margin: 10px 0 0 0; opacity: 0.8;">Fashion &amp; Style</p>
  </div>
  <div style="padding: 30px; background: white;">
    <h2 style="color: #0f172a;">Welcome to UncleFab, {{.Name}}!</h2>
    <p style="color: #64748b; line-height: 1.6;">
      Thank you for signing up! Please verify your email address to complete
      your registration.
    </p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.URL}}" style="background: #3b82f6; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; display: inline-block; font-weight: bold;">Verify Email Address</a>
    </div>
    <p style="color: #64748b; font-size: 14px;">
      If the button doesn't work, copy and paste this link into your browser:<br>
      <a href="{{.URL}}" style="color: #3b82f6;">{{.URL}}</a>
    </p>
    <p style="color: #64748b; font-size: 14px;">
      This link will expire in 24 hours. If you didn't create an account, you
      can safely ignore this email.
    </p>
  </div>
</div>
`))

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #0f172a; color: white; padding: 30px; text-align: center;">
    <h1 style="margin: 0; color: #3b82f6;">UncleFab</h1>
    <p style="margin: 10px 0 0 0; opacity: 0.8;">Fashion &amp; Style</p>
  </div>
  <div style="padding: 30px; background: white;">
    <h2 style="color: #0f172a;">Password Reset Request</h2>
    <p style="color: #64748b; line-height: 1.6;">
      Hi {{.Name}}, we received a request to reset your password. Click the
      button below to create a new password.
    </p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.URL}}" style="background: #3b82f6; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; display: inline-block; font-weight: bold;">Reset Password</a>
    </div>
    <p style="color: #64748b; font-size: 14px;">
      If the button doesn't work, copy and paste this link into your browser:<br>
      <a href="{{.URL}}" style="color: #3b82f6;">{{.URL}}</a>
    </p>
    <p style="color: #64748b; font-size: 14px;">
      This link will expire in 1 hour. If you didn't request a password reset,
      you can safely ignore this email.
    </p>
  </div>
</div>
`))

type templateData struct {
	Name string
	URL  string
}
