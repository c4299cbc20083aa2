package handlers

const (
	SessionCookieName = "session_id"
	FlashCookieName   = "flash"
	CSRFFormField     = "csrf_token"
	CSRFHeaderName    = "X-CSRF-Token"

	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
	ErrTooManyRequests     = "Too many requests. Please try again later."
	ErrInternalServerError = "Internal server error"

	MsgInvalidLogin      = "Invalid login attempt."
	MsgInvalidToken      = "Invalid token."
	MsgEmailInUse        = "Email is already in use by another account."
	MsgInviteEmailInUse  = "User with this email already exists."
	MsgIncorrectPassword = "Incorrect password."
	MsgUserNotFound      = "User not found."
	MsgPasswordChanged   = "Your password has been changed successfully."
	MsgProfileUpdated    = "Profile updated successfully!"
	MsgContactThanks     = "Thank you for your message. We'll get back to you soon!"
	MsgSettingsUpdated   = "Notification settings updated!"
	MsgClientNotFound    = "Client not found"
	MsgTemplateUpdated   = "Email template updated successfully"
	MsgUploadSucceeded   = "File uploaded successfully!"
	MsgUploadFailed      = "Upload failed. Please try again."
	MsgUploadTooLarge    = "File is too large to upload."

	FlashSuccess = "success"
	FlashError   = "error"
)
