package toolset

// Builtin returns the bundled tool groups as definitions.
func Builtin() []Definition {
	return Flatten(builtinGroups)
}

// BuiltinGroups returns a copy of the bundled groups.
func BuiltinGroups() []Group {
	out := make([]Group, len(builtinGroups))
	for i, g := range builtinGroups {
		out[i] = Group{Name: g.Name, Tools: append([]Tool(nil), g.Tools...)}
	}
	return out
}

var builtinGroups = []Group{
	{Name: "ConversionPlugin", Tools: []Tool{
		{"ConvertLength", "Converts between different length units"},
		{"ConvertWeight", "Converts between different weight units"},
	}},
	{Name: "DataAnalysisPlugin", Tools: []Tool{
		{"CalculateStats", "Calculates basic statistics (min, max, avg) from a list of numbers"},
		{"FindOutliers", "Finds outliers in a dataset using IQR method"},
		{"CalculatePercentageChange", "Calculates percentage change between two values"},
	}},
	{Name: "FilePlugin", Tools: []Tool{
		{"SearchContent", "Searches file contents across directories"},
		{"GetFileInfo", "Gets file metadata including size and dates"},
	}},
	{Name: "FinancePlugin", Tools: []Tool{
		{"CalculateCompoundInterest", "Calculates compound interest"},
		{"CalculateLoanPayment", "Calculates monthly loan payment"},
		{"FormatCurrency", "Formats currency value"},
	}},
	{Name: "FormatPlugin", Tools: []Tool{
		{"FormatJson", "Formats JSON data"},
		{"FormatDate", "Formats dates in various styles"},
		{"FormatNumber", "Formats numbers with specified precision"},
	}},
	{Name: "GeographyPlugin", Tools: []Tool{
		{"CalculateDistance", "Calculates distance between two coordinates"},
		{"ValidateCoordinates", "Validates geographic coordinates"},
		{"GetCardinalDirection", "Converts coordinates to cardinal direction"},
	}},
	{Name: "MathPlugin", Tools: []Tool{
		{"Calculate", "Performs mathematical calculations"},
	}},
	{Name: "MediaPlugin", Tools: []Tool{
		{"GetMimeType", "Extracts MIME type from file extension"},
		{"ValidateImageDimensions", "Validates image dimensions"},
		{"CalculateAspectRatio", "Calculates aspect ratio"},
	}},
	{Name: "NetworkPlugin", Tools: []Tool{
		{"ExtractDomain", "Extracts domain from URL"},
		{"ValidatePort", "Checks if port number is valid"},
		{"ValidateIPv4", "Validates IPv4 address"},
	}},
	{Name: "SecurityPlugin", Tools: []Tool{
		{"HashString", "Generates secure hashes"},
		{"GeneratePassword", "Generates a random password"},
	}},
	{Name: "StringManipulationPlugin", Tools: []Tool{
		{"ReverseString", "Reverses a string"},
		{"RemoveCharacters", "Removes specified characters from text"},
		{"FindLongestWord", "Finds the longest word in text"},
	}},
	{Name: "TextPlugin", Tools: []Tool{
		{"Summarize", "Generates text summaries"},
		{"ExtractKeywords", "Extracts keywords from text"},
		{"DetectLanguage", "Detects the language of text"},
		{"FindCommonWords", "Finds common words between two texts"},
		{"CalculateTextSimilarity", "Calculates text similarity score"},
	}},
	{Name: "TimePlugin", Tools: []Tool{
		{"GetCurrentTime", "Gets the current time"},
		{"GetTimeDifference", "Calculates time difference between two timestamps"},
		{"IsBusinessHours", "Checks if a given time is within business hours"},
		{"GetNextBusinessDay", "Calculates next business day"},
		{"CalculateAge", "Calculates age from birthdate"},
	}},
	{Name: "TranslationPlugin", Tools: []Tool{
		{"Translate", "Translates text between languages"},
	}},
	{Name: "UtilityPlugin", Tools: []Tool{
		{"ExtractNumbers", "Extracts numbers from text"},
		{"CountOccurrences", "Counts occurrences of a pattern in text"},
		{"GenerateId", "Generates a unique identifier"},
		{"ValidatePattern", "Validates if text matches a regex pattern"},
		{"GenerateRandomString", "Generates random string"},
		{"IsPalindrome", "Checks if string is palindrome"},
	}},
	{Name: "ValidationPlugin", Tools: []Tool{
		{"ValidateEmail", "Validates email addresses"},
		{"ValidatePhone", "Validates phone numbers"},
		{"ValidateUrl", "Validates URLs"},
		{"ValidateCreditCard", "Validates a credit card number using Luhn algorithm"},
		{"ValidateISBN", "Validates an ISBN number"},
		{"ValidatePasswordStrength", "Validates a password strength"},
		{"ValidateDate", "Validates a date string format"},
	}},
	{Name: "WeatherPlugin", Tools: []Tool{
		{"GetForecast", "Gets weather forecast for a location"},
	}},
}
