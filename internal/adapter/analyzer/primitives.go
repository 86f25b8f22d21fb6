package analyzer

// stdHeaders maps standard-library names to the system header declaring
// them. Only names a C file is likely to use without its own include are
// listed.
var stdHeaders = map[string]string{
	"malloc": "stdlib.h", "calloc": "stdlib.h", "realloc": "stdlib.h", "free": "stdlib.h",
	"exit": "stdlib.h", "abort": "stdlib.h", "atoi": "stdlib.h", "atof": "stdlib.h",
	"strtol": "stdlib.h", "strtod": "stdlib.h", "qsort": "stdlib.h", "getenv": "stdlib.h",

	"strcmp": "string.h", "strncmp": "string.h", "strlen": "string.h", "strcpy": "string.h",
	"strncpy": "string.h", "strdup": "string.h", "strndup": "string.h", "strcat": "string.h",
	"strncat": "string.h", "strchr": "string.h", "strrchr": "string.h", "strstr": "string.h",
	"memcpy": "string.h", "memmove": "string.h", "memset": "string.h", "memcmp": "string.h",

	"printf": "stdio.h", "fprintf": "stdio.h", "sprintf": "stdio.h", "snprintf": "stdio.h",
	"vprintf": "stdio.h", "vfprintf": "stdio.h", "vsnprintf": "stdio.h", "puts": "stdio.h",
	"fputs": "stdio.h", "fopen": "stdio.h", "fclose": "stdio.h", "fread": "stdio.h",
	"fwrite": "stdio.h", "fgets": "stdio.h", "fflush": "stdio.h", "FILE": "stdio.h",
	"stdin": "stdio.h", "stdout": "stdio.h", "stderr": "stdio.h", "EOF": "stdio.h",

	"bool": "stdbool.h", "true": "stdbool.h", "false": "stdbool.h",

	"size_t": "stddef.h", "NULL": "stddef.h", "ptrdiff_t": "stddef.h",

	"assert": "assert.h",

	"isspace": "ctype.h", "isdigit": "ctype.h", "isalpha": "ctype.h", "isalnum": "ctype.h",
	"isupper": "ctype.h", "islower": "ctype.h", "isxdigit": "ctype.h", "ispunct": "ctype.h",
	"toupper": "ctype.h", "tolower": "ctype.h",

	"va_list": "stdarg.h", "va_start": "stdarg.h", "va_end": "stdarg.h", "va_arg": "stdarg.h",
	"va_copy": "stdarg.h",

	"int8_t": "stdint.h", "int16_t": "stdint.h", "int32_t": "stdint.h", "int64_t": "stdint.h",
	"uint8_t": "stdint.h", "uint16_t": "stdint.h", "uint32_t": "stdint.h", "uint64_t": "stdint.h",
	"intptr_t": "stdint.h", "uintptr_t": "stdint.h",

	"errno": "errno.h",
}

// StdHeader returns the system include token ("<stdlib.h>") for a
// standard-library name.
func StdHeader(name string) (string, bool) {
	h, ok := stdHeaders[name]
	if !ok {
		return "", false
	}
	return "<" + h + ">", true
}

// IsPrimitive reports whether name belongs to the standard library table.
func IsPrimitive(name string) bool {
	_, ok := stdHeaders[name]
	return ok
}
