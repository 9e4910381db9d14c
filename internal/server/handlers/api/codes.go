package api

const (
	// Generic request/server errors
	CodeInvalidRequest   = "E_INVALID_REQUEST"    // bad or invalid request
	CodeRateLimited      = "E_RATE_LIMITED"       // rate limit exceeded
	CodeInternalError    = "E_INTERNAL_ERROR"     // internal server error
	CodeAccessDenied     = "E_ACCESS_DENIED"      // access denied
	CodeNotFound         = "E_NOT_FOUND"          // no such route
	CodeMethodNotAllowed = "E_METHOD_NOT_ALLOWED" // route exists, method does not

	// Auth errors
	CodeAuthInvalidCredentials    = "E_AUTH_INVALID_CREDENTIALS"     // authentication credentials (e.g., token) are invalid, expired, or malformed.
	CodeAuthTokenGenerationFailed = "E_AUTH_TOKEN_GENERATION_FAILED" // a failure during the generation of new authentication tokens.
	CodeAuthOTPVerificationFailed = "E_AUTH_OTP_VERIFICATION_FAILED" // Email One-Time Password (OTP) verification failed.
	CodeAuthTokenRefreshFailed    = "E_AUTH_TOKEN_REFRESH_FAILED"    // a failure during the attempt to refresh an authentication token.
	CodeAuthNotificationFailed    = "E_AUTH_NOTIFICATION_FAILED"     // a failure in sending an authentication-related notification (e.g., OTP email/SMS).

	// Upload and storage errors
	CodePayloadTooLarge    = "E_PAYLOAD_TOO_LARGE"   // declared or received size exceeds the upload ceiling.
	CodeStorageUnavailable = "E_STORAGE_UNAVAILABLE" // no storage backend can take the upload.
	CodeUploadFailed       = "E_UPLOAD_FAILED"       // bytes were received but could not be stored.
	CodeFileNotFound       = "E_FILE_NOT_FOUND"      // no local file with that name.
	CodeObjectNotFound     = "E_OBJECT_NOT_FOUND"    // no remote object at that path.
	CodeObjectReadFailed   = "E_OBJECT_READ_FAILED"  // the remote store could not be read.
	CodeFileDeleteFailed   = "E_FILE_DELETE_FAILED"  // a local file could not be removed.

	// Contract and signature errors
	CodeContractNotFound      = "E_CONTRACT_NOT_FOUND"      // the contract does not exist.
	CodeContractAlreadySigned = "E_CONTRACT_ALREADY_SIGNED" // the contract is already signed.
	CodeTokenNotFound         = "E_TOKEN_NOT_FOUND"         // the signing link is unknown.
	CodeTokenExpired          = "E_TOKEN_EXPIRED"           // the signing link is past its expiry.
	CodeTokenAlreadyConsumed  = "E_TOKEN_ALREADY_CONSUMED"  // the signing link was already used.
	CodeIdentityMismatch      = "E_IDENTITY_MISMATCH"       // the identity fragment did not match.
)
