package hyde

// InputVar is the template variable holding the user request.
const InputVar = "input"

// DefaultTemplate is the few-shot prompt that turns a request into a tool description.
// It is rendered as an FString template: {input} is substituted, literal braces
// must be doubled.
const DefaultTemplate = `Based on the user's request, generate a brief, focused description of a tool that would handle this request.
Use these examples as a guide:

Example requests and their tool descriptions:
Request: 'Send an email to John'
Description: Sends emails to specified recipients with customizable content

Request: 'Convert 5 meters to feet'
Description: Converts values between different measurement units

Request: 'Set a reminder for tomorrow at 2pm'
Description: Creates time-based reminders with custom messages

Request: 'Generate a random password'
Description: Generates secure random passwords with configurable options

Request: 'Compress this image'
Description: Compresses images while preserving quality

Request: {input}
Description:`
