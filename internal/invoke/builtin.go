package invoke

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

var (
	numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern  = regexp.MustCompile(`^\+?(\d[\d. -]+)?(\([\d. -]+\))?[\d. -]+\d$`)
)

func required(t schema.DataType, desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: t, Desc: desc, Required: true}
}

func optional(t schema.DataType, desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: t, Desc: desc}
}

// Builtin returns a registry with local functions for the deterministic tools
// of the bundled toolset. Tools that need a network or a model are left out.
func Builtin() *Registry {
	r := NewRegistry()

	r.Add("StringManipulationPlugin", "ReverseString", map[string]*schema.ParameterInfo{
		"input": required(schema.String, "The string to reverse"),
	}, reverseString)
	r.Add("StringManipulationPlugin", "RemoveCharacters", map[string]*schema.ParameterInfo{
		"text":  required(schema.String, "The input text"),
		"chars": required(schema.String, "Characters to remove"),
	}, removeCharacters)
	r.Add("StringManipulationPlugin", "FindLongestWord", map[string]*schema.ParameterInfo{
		"text": required(schema.String, "The text to analyze"),
	}, findLongestWord)

	r.Add("UtilityPlugin", "ExtractNumbers", map[string]*schema.ParameterInfo{
		"text":         required(schema.String, "The text to extract numbers from"),
		"integersOnly": optional(schema.Boolean, "Extract only integers"),
	}, extractNumbers)
	r.Add("UtilityPlugin", "CountOccurrences", map[string]*schema.ParameterInfo{
		"text":          required(schema.String, "The text to search in"),
		"pattern":       required(schema.String, "The pattern to count"),
		"caseSensitive": optional(schema.Boolean, "Case sensitive search"),
	}, countOccurrences)
	r.Add("UtilityPlugin", "GenerateId", map[string]*schema.ParameterInfo{
		"prefix":           optional(schema.String, "Prefix for the ID"),
		"includeTimestamp": optional(schema.Boolean, "Use timestamp in ID"),
	}, generateID)
	r.Add("UtilityPlugin", "ValidatePattern", map[string]*schema.ParameterInfo{
		"text":    required(schema.String, "The text to validate"),
		"pattern": required(schema.String, "The regex pattern to match against"),
	}, validatePattern)
	r.Add("UtilityPlugin", "IsPalindrome", map[string]*schema.ParameterInfo{
		"text":       required(schema.String, "The string to check"),
		"ignoreCase": optional(schema.Boolean, "Ignore case (default true)"),
	}, isPalindrome)

	r.Add("NetworkPlugin", "ExtractDomain", map[string]*schema.ParameterInfo{
		"url": required(schema.String, "The URL to process"),
	}, extractDomain)
	r.Add("NetworkPlugin", "ValidatePort", map[string]*schema.ParameterInfo{
		"port": required(schema.Integer, "The port number to validate"),
	}, validatePort)
	r.Add("NetworkPlugin", "ValidateIPv4", map[string]*schema.ParameterInfo{
		"ipAddress": required(schema.String, "The IP address to validate"),
	}, validateIPv4)

	r.Add("ValidationPlugin", "ValidateEmail", map[string]*schema.ParameterInfo{
		"email": required(schema.String, "The email address to validate"),
	}, matchArg("email", emailPattern))
	r.Add("ValidationPlugin", "ValidatePhone", map[string]*schema.ParameterInfo{
		"phone": required(schema.String, "The phone number to validate"),
	}, matchArg("phone", phonePattern))
	r.Add("ValidationPlugin", "ValidateUrl", map[string]*schema.ParameterInfo{
		"url": required(schema.String, "The URL to validate"),
	}, validateURL)
	r.Add("ValidationPlugin", "ValidateCreditCard", map[string]*schema.ParameterInfo{
		"cardNumber": required(schema.String, "The credit card number to validate"),
	}, validateCreditCard)
	r.Add("ValidationPlugin", "ValidateISBN", map[string]*schema.ParameterInfo{
		"isbn": required(schema.String, "The ISBN number to validate"),
	}, validateISBN)
	r.Add("ValidationPlugin", "ValidatePasswordStrength", map[string]*schema.ParameterInfo{
		"password": required(schema.String, "The password to validate"),
	}, validatePasswordStrength)

	r.Add("SecurityPlugin", "HashString", map[string]*schema.ParameterInfo{
		"input": required(schema.String, "The string to hash"),
		"algorithm": {
			Type: schema.String,
			Desc: "The hash algorithm to use",
			Enum: []string{"SHA256", "SHA512", "MD5", "BLAKE3"},
		},
	}, hashString)

	return r
}

func reverseString(_ context.Context, args Args) (string, error) {
	input, err := args.String("input")
	if err != nil {
		return "", err
	}
	runes := []rune(input)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func removeCharacters(_ context.Context, args Args) (string, error) {
	text, err := args.String("text")
	if err != nil {
		return "", err
	}
	chars, err := args.String("chars")
	if err != nil {
		return "", err
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, text), nil
}

func findLongestWord(_ context.Context, args Args) (string, error) {
	text, err := args.String("text")
	if err != nil {
		return "", err
	}
	longest := ""
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) > len([]rune(longest)) {
			longest = w
		}
	}
	return longest, nil
}

func extractNumbers(_ context.Context, args Args) (string, error) {
	text, err := args.String("text")
	if err != nil {
		return "", err
	}
	integersOnly := args.BoolOr("integersOnly", false)

	var numbers []string
	for _, n := range numberPattern.FindAllString(text, -1) {
		if integersOnly && strings.Contains(n, ".") {
			continue
		}
		numbers = append(numbers, n)
	}
	return strings.Join(numbers, ", "), nil
}

func countOccurrences(_ context.Context, args Args) (string, error) {
	text, err := args.String("text")
	if err != nil {
		return "", err
	}
	pattern, err := args.String("pattern")
	if err != nil {
		return "", err
	}
	if pattern == "" {
		return "", fmt.Errorf("pattern is empty")
	}

	if args.BoolOr("caseSensitive", false) {
		return strconv.Itoa(strings.Count(text, pattern)), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}
	return strconv.Itoa(len(re.FindAllStringIndex(text, -1))), nil
}

func generateID(_ context.Context, args Args) (string, error) {
	prefix := args.StringOr("prefix", "")
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if args.BoolOr("includeTimestamp", false) {
		return prefix + time.Now().UTC().Format("20060102150405") + "-" + id, nil
	}
	return prefix + id, nil
}

func validatePattern(_ context.Context, args Args) (string, error) {
	text, err := args.String("text")
	if err != nil {
		return "", err
	}
	pattern, err := args.String("pattern")
	if err != nil {
		return "", err
	}
	ok, err := regexp.MatchString(pattern, text)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}
	return strconv.FormatBool(ok), nil
}

func isPalindrome(_ context.Context, args Args) (string, error) {
	text, err := args.String("text")
	if err != nil {
		return "", err
	}
	if args.BoolOr("ignoreCase", true) {
		text = strings.ToLower(text)
	}
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		if runes[i] != runes[j] {
			return "false", nil
		}
	}
	return "true", nil
}

func extractDomain(_ context.Context, args Args) (string, error) {
	raw, err := args.String("url")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("not an absolute URL: %q", raw)
	}
	return u.Hostname(), nil
}

func validatePort(_ context.Context, args Args) (string, error) {
	port, err := args.Int("port")
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(port >= 0 && port <= 65535), nil
}

func validateIPv4(_ context.Context, args Args) (string, error) {
	raw, err := args.String("ipAddress")
	if err != nil {
		return "", err
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	return strconv.FormatBool(err == nil && addr.Is4()), nil
}

func matchArg(name string, re *regexp.Regexp) Function {
	return func(_ context.Context, args Args) (string, error) {
		value, err := args.String(name)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(re.MatchString(value)), nil
	}
}

func validateURL(_ context.Context, args Args) (string, error) {
	raw, err := args.String("url")
	if err != nil {
		return "", err
	}
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	ok := err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	return strconv.FormatBool(ok), nil
}

func validateCreditCard(_ context.Context, args Args) (string, error) {
	raw, err := args.String("cardNumber")
	if err != nil {
		return "", err
	}
	number := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	if number == "" {
		return "false", nil
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return "false", nil
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return strconv.FormatBool(sum%10 == 0), nil
}

func validateISBN(_ context.Context, args Args) (string, error) {
	raw, err := args.String("isbn")
	if err != nil {
		return "", err
	}
	number := strings.NewReplacer(" ", "", "-", "").Replace(raw)

	digit := func(c byte) (int, bool) {
		if c < '0' || c > '9' {
			return 0, false
		}
		return int(c - '0'), true
	}

	switch len(number) {
	case 10:
		sum := 0
		for i := 0; i < 9; i++ {
			d, ok := digit(number[i])
			if !ok {
				return "false", nil
			}
			sum += (10 - i) * d
		}
		last := number[9]
		if last == 'X' || last == 'x' {
			sum += 10
		} else if d, ok := digit(last); ok {
			sum += d
		} else {
			return "false", nil
		}
		return strconv.FormatBool(sum%11 == 0), nil

	case 13:
		sum := 0
		for i := 0; i < 12; i++ {
			d, ok := digit(number[i])
			if !ok {
				return "false", nil
			}
			if i%2 == 0 {
				sum += d
			} else {
				sum += 3 * d
			}
		}
		check, ok := digit(number[12])
		return strconv.FormatBool(ok && check == (10-sum%10)%10), nil

	default:
		return "false", nil
	}
}

func validatePasswordStrength(_ context.Context, args Args) (string, error) {
	password, err := args.String("password")
	if err != nil {
		return "", err
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			special = true
		}
	}

	switch {
	case len([]rune(password)) < 8:
		return "false: Password must be at least 8 characters long", nil
	case !upper:
		return "false: Password must contain at least one uppercase letter", nil
	case !lower:
		return "false: Password must contain at least one lowercase letter", nil
	case !digit:
		return "false: Password must contain at least one number", nil
	case !special:
		return "false: Password must contain at least one special character", nil
	}
	return "true: Password meets all requirements", nil
}

func hashString(_ context.Context, args Args) (string, error) {
	input, err := args.String("input")
	if err != nil {
		return "", err
	}

	data := []byte(input)
	var sum []byte
	switch strings.ToUpper(args.StringOr("algorithm", "SHA256")) {
	case "SHA256":
		h := sha256.Sum256(data)
		sum = h[:]
	case "SHA512":
		h := sha512.Sum512(data)
		sum = h[:]
	case "MD5":
		h := md5.Sum(data)
		sum = h[:]
	case "BLAKE3":
		h := blake3.Sum256(data)
		sum = h[:]
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", args.StringOr("algorithm", ""))
	}
	return strings.ToUpper(hex.EncodeToString(sum)), nil
}
