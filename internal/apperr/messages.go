package apperr

// Message catalog.  Handlers and tests compare against these values, so the
// wording is part of the API.
const (
	MsgDefault              = "An unexpected error occurred, please try again later"
	MsgSessionExpired       = "Invalid Session/Session Expired"
	MsgNotFound             = "Resource not found"
	MsgUnauthorized         = "Unauthorized Access"
	MsgInvalidPassword      = "Invalid password"
	MsgInvalidCredentials   = "Invalid credentials"
	MsgAccountInactive      = "Account is inactive, please contact to your HOD"
	MsgDepartmentExists     = "Department already exists with this name"
	MsgDepartmentNotExist   = "Department not exist"
	MsgUserNotExist         = "User not exist"
	MsgLeaveNotExist        = "Leave not exist"
	MsgOnlyImageAllowed     = "Only image files are allowed!"
	MsgInvalidImage         = "Invalid image file"
	MsgFileTooLarge         = "File too large"
	MsgLeaveExistInRange    = "You have already applied for leave within this date range"
	MsgFromDateInPast       = "You can't add leave for previous dates"
	MsgToDateBeforeFromDate = "From date must be greater than to date"
	MsgCannotUpdateLeave    = "You can't update leave because leave is"
	MsgCannotDeleteLeave    = "You can't delete leave because leave is"
	MsgCannotChangeStatus   = "You can't change status because leave is"
	MsgInvalidResetToken    = "Invalid or expired password reset token"
	MsgUsersInDepartment    = "There are some users associated with this department, Please delete them first"
	MsgInvalidDate          = "Invalid date"
	MsgInvalidID            = "Invalid id"
	MsgInvalidRequestBody   = "Invalid request body"
)
