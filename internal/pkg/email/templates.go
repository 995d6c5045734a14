package email

// BaseTemplate wraps every message in the shared layout
const BaseTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:32px 16px;">
      <table width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
        <tr><td style="font-size:20px;font-weight:bold;color:#111827;padding-bottom:16px;">FinVault</td></tr>
        <tr><td style="font-size:14px;color:#374151;line-height:1.6;">{{.Content}}</td></tr>
        <tr><td style="font-size:12px;color:#9ca3af;padding-top:24px;">If you did not request this, contact support immediately.</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

// OTPCodeTemplate delivers the one-time confirmation code
const OTPCodeTemplate = `
<p>Hi {{.UserName}},</p>
<p>Use this code to confirm your {{.Operation}} of <b>{{.Amount}} {{.Currency}}</b>{{if .Recipient}} to <b>{{.Recipient}}</b>{{end}}:</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold;">{{.Code}}</p>
<p>The code expires in {{.ExpiresIn}}. Never share it with anyone.</p>`

// TransferCompletedTemplate notifies both sides of a completed transfer
const TransferCompletedTemplate = `
<p>Hi {{.UserName}},</p>
<p>Your transfer of <b>{{.Amount}} {{.Currency}}</b> {{.Direction}} <b>{{.Counterparty}}</b> has completed.</p>
<p>Reference: <b>{{.Reference}}</b></p>`

// ScheduleCreatedTemplate confirms a scheduled transfer was registered
const ScheduleCreatedTemplate = `
<p>Hi {{.UserName}},</p>
<p>Your {{if .Recurring}}recurring {{end}}transfer of <b>{{.Amount}} {{.Currency}}</b> to <b>{{.Recipient}}</b> is scheduled for {{.ScheduledAt}}.</p>`

// ScheduleExecutedTemplate notifies that a scheduled occurrence ran
const ScheduleExecutedTemplate = `
<p>Hi {{.UserName}},</p>
<p>Your scheduled transfer of <b>{{.Amount}} {{.Currency}}</b> to <b>{{.Recipient}}</b> was executed.</p>
<p>Reference: <b>{{.Reference}}</b></p>`

// ScheduleCancelledTemplate confirms cancellation
const ScheduleCancelledTemplate = `
<p>Hi {{.UserName}},</p>
<p>Your scheduled transfer of <b>{{.Amount}} {{.Currency}}</b> to <b>{{.Recipient}}</b> has been cancelled.</p>`

// ScheduleFailedTemplate notifies a permanently failed occurrence
const ScheduleFailedTemplate = `
<p>Hi {{.UserName}},</p>
<p>Your scheduled transfer of <b>{{.Amount}} {{.Currency}}</b> to <b>{{.Recipient}}</b> could not be executed: {{.Reason}}.</p>
<p>No money has been moved.</p>`

// RefundProcessedTemplate notifies the wallet owner that a deposit refund went out
const RefundProcessedTemplate = `
<p>Hi {{.UserName}},</p>
<p>Your refund of <b>{{.Amount}} {{.Currency}}</b> is on its way back to your bank account.</p>
<p>Reference: <b>{{.Reference}}</b></p>`
