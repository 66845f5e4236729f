package kvstore

// Match reports whether key matches a Redis-style glob pattern, as KEYS
// does. Supported syntax: '*', '?', '[...]' with '^' negation and 'a-z'
// ranges, and '\' escapes. '*' matches any run of bytes, '/' included.
// A malformed pattern matches nothing.
func Match(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	return match(pattern, key)
}

func match(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 1 && p[1] == '*' {
				p = p[1:]
			}
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if match(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			ok, rest, valid := matchClass(p[1:], s[0])
			if !valid || !ok {
				return false
			}
			p, s = rest, s[1:]
		case '\\':
			if len(p) < 2 {
				return false
			}
			if len(s) == 0 || s[0] != p[1] {
				return false
			}
			p, s = p[2:], s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// matchClass matches c against the class body that follows '['. It returns
// the pattern after the closing ']'; valid is false when there is none.
func matchClass(p string, c byte) (ok bool, rest string, valid bool) {
	negate := len(p) > 0 && p[0] == '^'
	if negate {
		p = p[1:]
	}
	for i := 0; i < len(p); i++ {
		lo := p[i]
		switch {
		case lo == ']' && i > 0:
			return ok != negate, p[i+1:], true
		case lo == '\\' && i+1 < len(p):
			i++
			lo = p[i]
		}
		hi := lo
		if i+2 < len(p) && p[i+1] == '-' && p[i+2] != ']' {
			hi = p[i+2]
			i += 2
			if lo > hi {
				lo, hi = hi, lo
			}
		}
		if lo <= c && c <= hi {
			ok = true
		}
	}
	return false, "", false
}
