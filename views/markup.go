package views

const markup = `
{{define "navbar"}}
<a href="/" class="nav__link" data-link>Home</a>
{{if .ID}}
<a href="/new-post" class="nav__link" data-link>New post</a>
<a href="/chats" class="nav__link" data-link>Chats</a>
<a href="/user/{{.ID}}" class="nav__link" id="profile-link" data-link>{{.Username}}</a>
<a href="/" class="nav__link" id="sign-out">Sign out</a>
{{else}}
<a href="/sign-up" class="nav__link" data-link>Sign up</a>
<a href="/sign-in" class="nav__link" data-link>Sign in</a>
{{end}}
{{end}}

{{define "post-item"}}
<div class="post">
	<a class="post-link" href="/post/{{.ID}}" data-link>{{.Title}}</a>
	<p>{{date .Date}}</p>
	<a href="/user/{{.Author.ID}}" data-link>{{.Author.FirstName}} {{.Author.LastName}}</a>
</div>
{{end}}

{{define "posts"}}{{range .}}{{template "post-item" .}}{{else}}No posts{{end}}{{end}}

{{define "comments"}}{{range .}}
<div class="comment">
	<p>{{.Data}}</p>
	<a href="/user/{{.Author.ID}}" data-link>{{.Author.Username}}</a>
	<span>{{date .Date}}</span>
</div>
{{else}}No comments{{end}}{{end}}

{{define "home"}}
<h1>Posts</h1>
<div id="posts">Loading</div>
{{end}}

{{define "sign-in"}}
<h1>Sign in</h1>
<form id="sign-in-form">
	<input type="text" id="username" placeholder="Username or email">
	<input type="password" id="password" placeholder="Password">
	<p id="error-message"></p>
	<button type="submit">Sign in</button>
</form>
{{end}}

{{define "sign-up"}}
<h1>Sign up</h1>
<form id="sign-up-form">
	<input type="text" id="username" placeholder="Username">
	<input type="text" id="first-name" placeholder="First name">
	<input type="text" id="last-name" placeholder="Last name">
	<input type="number" id="age" placeholder="Age">
	<label><input type="radio" name="gender" id="gender-male" value="1" checked>Male</label>
	<label><input type="radio" name="gender" id="gender-female" value="2">Female</label>
	<input type="email" id="email" placeholder="Email">
	<input type="password" id="password" placeholder="Password">
	<input type="password" id="password-confirm" placeholder="Confirm password">
	<p id="error-message"></p>
	<button type="submit">Sign up</button>
</form>
{{end}}

{{define "new-post"}}
<h1>New post</h1>
<form id="new-post-form">
	<input type="text" id="post-title" placeholder="Title">
	<textarea id="post-data" placeholder="Text"></textarea>
	<div id="post-categories"></div>
	<p id="error-message"></p>
	<button type="submit">Publish</button>
</form>
{{end}}

{{define "categories"}}{{range .}}
<label><input type="checkbox" id="category-{{.ID}}" value="{{.ID}}">{{.Name}}</label>
{{end}}{{end}}

{{define "post"}}
<div id="post">Loading</div>
<h2>Comments</h2>
<div id="comments"></div>
<form id="comment-form">
	<textarea id="comment-data" placeholder="Comment"></textarea>
	<p id="error-message"></p>
	<button type="submit">Send</button>
</form>
{{end}}

{{define "post-detail"}}
<h1>{{.Title}}</h1>
<p class="post-author"><a href="/user/{{.Author.ID}}" data-link>{{.Author.FirstName}} {{.Author.LastName}}</a> {{date .Date}}</p>
<p class="post-data">{{.Data}}</p>
<p class="post-categories">{{range .Categories}}<span>{{.Name}}</span>{{end}}</p>
<p class="post-rating">{{.Rating}}</p>
{{end}}

{{define "profile"}}
<h2>Profile</h2>
<div id="user-profile">
	<div class="profile-info" id="avatar"></div>
	<div>
		<div class="profile-info" id="username"></div>
		<div class="profile-info" id="first-name"></div>
		<div class="profile-info" id="last-name"></div>
		<div class="profile-info" id="age"></div>
		<div class="profile-info" id="gender"></div>
		<div class="profile-info" id="registered"></div>
	</div>
</div>
<h2>Published posts</h2>
<div id="users-posts"></div>
<h2>Liked posts</h2>
<div id="users-liked-posts"></div>
<h2>Disliked posts</h2>
<div id="users-disliked-posts"></div>
{{end}}

{{define "avatar"}}<img src="{{.}}">{{end}}

{{define "chats"}}
<h1>Chats</h1>
<div id="chat-users"></div>
<div id="messages"></div>
<form id="message-form">
	<input type="hidden" id="message-to" value="">
	<input type="text" id="message-text" placeholder="Message">
	<button type="submit">Send</button>
</form>
{{end}}

{{define "chat-users"}}{{range .}}
<button class="chat-user{{if .Online}} online{{end}}" id="chat-user-{{.ID}}" value="{{.ID}}">{{.Username}}</button>
{{else}}No users{{end}}{{end}}

{{define "message"}}
<div class="message" data-from="{{.From}}"><span>{{date .Date}}</span> {{.Text}}</div>
{{end}}

{{define "failure"}}
<h1>Something went wrong</h1>
<p id="failure-message">{{.}}</p>
<a href="/" data-link>Home</a>
{{end}}
`
