// Package pattern compiles directive pattern text into segments and
// assembles them into regular expressions against a variable environment.
//
// Token syntax:
//
//	[[NAME:regex]]   define NAME with what regex matches
//	[[NAME]]         substitute the current value of NAME literally
//	{{NAME}}         same as [[NAME]] when the body is a bare identifier
//	{{regex}}        inline regular expression
//	[[@LINE]]        annotation line of the directive, also [[@LINE+N]], [[@LINE-N]]
//
// Everything else is literal text unless RegexMode is set.
package pattern
